package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginTop(1).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)
)

// envelope is the --json shape of every command result
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// respond prints a command result. A delivery failure next to a committed
// entity is reported as a warning and the command still succeeds; any
// other error is returned to Execute.
func respond(cmd *cobra.Command, message string, data any, err error, human func(w io.Writer)) error {
	if err != nil && !apperrors.Is(err, apperrors.ErrTypeDelivery) {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOutput {
		env := envelope{Success: true, Message: message, Data: data}
		if err != nil {
			env.Error = err.Error()
		}
		return writeJSON(out, env)
	}
	fmt.Fprintf(out, "✓ %s\n", message)
	if human != nil {
		human(out)
	}
	if err != nil {
		fmt.Fprintf(out, "%s %v\n", warnStyle.Render("Warning:"), err)
	}
	return nil
}

// reportError prints a failed command in the selected output format
func reportError(w io.Writer, err error) {
	if jsonOutput {
		_ = writeJSON(w, envelope{Success: false, Message: errorMessage(err), Error: err.Error()})
		return
	}
	fmt.Fprintf(w, "%s %v\n", errorStyle.Render("Error:"), err)
}

func errorMessage(err error) string {
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

func field(w io.Writer, label string, value any) {
	s := fmt.Sprint(value)
	if s == "" || s == "<nil>" {
		return
	}
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(s))
}

var displayCaser = cases.Title(language.English)

// display turns stored identifiers such as "onhold" or "bu_notification"
// into labels
func display(s string) string {
	return displayCaser.String(strings.NewReplacer("_", " ", "-", " ").Replace(s))
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

func parseTime(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.InvalidInput(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD or RFC 3339", value), nil)
}

// readFile loads a document for upload; the content type is sniffed from
// the extension
func readFile(path string) (*pipeline.File, error) {
	if path == "" {
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.InvalidInput("cannot read "+path, err)
	}
	contentType := "application/octet-stream"
	if strings.EqualFold(strings.TrimPrefix(filepath.Ext(path), "."), "pdf") {
		contentType = "application/pdf"
	}
	return &pipeline.File{Filename: filepath.Base(path), ContentType: contentType, Content: content}, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
