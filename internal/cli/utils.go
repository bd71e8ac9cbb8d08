package cli

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/lithammer/dedent"

	"github.com/raine/storefront/internal/api"
)

var errUnterminatedQuote = errors.New("unterminated quote")

func formatReplyText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

// splitArgs splits a command line on whitespace. Double quotes group words,
// so `profile set direccion="Av. Siempre Viva 742"` yields three arguments.
func splitArgs(s string) ([]string, error) {
	var args []string
	var cur strings.Builder
	inQuote, hasArg := false, false

	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			hasArg = true
		case !inQuote && (r == ' ' || r == '\t'):
			if hasArg {
				args = append(args, cur.String())
				cur.Reset()
				hasArg = false
			}
		default:
			cur.WriteRune(r)
			hasArg = true
		}
	}
	if inQuote {
		return nil, errUnterminatedQuote
	}
	if hasArg {
		args = append(args, cur.String())
	}
	return args, nil
}

// parseFields parses key=value arguments, rejecting keys not in allowed.
func parseFields(args []string, allowed []string) (map[string]string, error) {
	fields := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		if !slices.Contains(allowed, key) {
			return nil, fmt.Errorf(MsgUnknownField, key, strings.Join(allowed, ", "))
		}
		fields[key] = value
	}
	return fields, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf(MsgInvalidArgument, "id", s)
	}
	return id, nil
}

func parseAmountField(name, value string) (api.Amount, error) {
	a, err := api.ParseAmount(value)
	if err != nil {
		return 0, fmt.Errorf(MsgInvalidArgument, name, value)
	}
	return a, nil
}

func parseBoolField(name, value string) (bool, error) {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "si", "sí":
		return true, nil
	case "0", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf(MsgInvalidArgument, name, value)
}

func formatUSD(a api.Amount) string {
	return humanize.FormatFloat("#,###.##", float64(a)) + " USD"
}

func formatCLP(a api.Amount) string {
	return humanize.FormatFloat("#,###.", float64(a)) + " CLP"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
