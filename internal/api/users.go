package api

import (
	"context"
	"net/http"
)

type Profile struct {
	ID        int    `json:"id,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	Telefono  string `json:"telefono"`
	Direccion string `json:"direccion"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	p := &Profile{}
	if err := c.getJSON(ctx, "users/profile/", p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProfile saves the editable profile fields. Username and email are
// read-only on the API side.
func (c *Client) UpdateProfile(ctx context.Context, p Profile) (*Profile, error) {
	updated := &Profile{}
	if err := c.sendJSON(ctx, http.MethodPut, "users/profile/", p, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

type changePasswordResponse struct {
	Message string `json:"message"`
}

// ChangePassword changes the password of the logged in user and returns the
// confirmation message sent by the API.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) (string, error) {
	var result changePasswordResponse
	err := c.sendJSON(ctx, http.MethodPost, "users/change-password/", changePasswordRequest{
		OldPassword: oldPassword,
		NewPassword: newPassword,
	}, &result)
	return result.Message, err
}

// DeleteAccount deletes the logged in user. The caller is expected to log
// out afterwards.
func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.sendJSON(ctx, http.MethodDelete, "users/delete/", nil, nil)
}
