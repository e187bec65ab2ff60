package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"safegate/internal/domain"
)

// Format is an output encoding.
type Format string

const (
	FormatAuto Format = "auto"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
)

// ParseFormat accepts auto, json, yaml and text (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatJSON, FormatYAML, FormatText:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want auto, json, yaml or text)", s)
}

// Resolve turns auto into text for terminals and json otherwise.
func (f Format) Resolve(out *os.File) Format {
	if f != FormatAuto {
		return f
	}
	if out != nil && term.IsTerminal(int(out.Fd())) {
		return FormatText
	}
	return FormatJSON
}

// Encode writes doc to w in format f. auto is treated as json.
func Encode(w io.Writer, doc domain.Document, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatText:
		return renderText(w, doc)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(doc)
	}
}

type errorBody struct {
	Error   string `json:"error" yaml:"error"`
	Message string `json:"message" yaml:"message"`
}

// EncodeError writes a failure for stderr. Text is "<code>: <message>";
// structured formats carry the same two fields.
func EncodeError(w io.Writer, err error, f Format) error {
	body := errorBody{Error: "error", Message: err.Error()}
	var ge *domain.GateError
	if errors.As(err, &ge) {
		body = errorBody{Error: string(ge.Code), Message: ge.Message}
	}
	switch f {
	case FormatJSON:
		return json.NewEncoder(w).Encode(body)
	case FormatYAML:
		return yaml.NewEncoder(w).Encode(body)
	}
	_, werr := fmt.Fprintf(w, "%s: %s\n", body.Error, body.Message)
	return werr
}
