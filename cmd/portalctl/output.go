package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"tuition/internal/client"
	dErrors "tuition/pkg/domain-errors"
)

var errOrphansFound = errors.New("orphaned payments found")

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// describe renders err for a person at a terminal. Outages get one generic
// message; rejections name the field at fault.
func describe(err error) string {
	if client.IsInfrastructure(err) {
		var infra *client.InfrastructureError
		errors.As(err, &infra)
		return fmt.Sprintf("error: the portal is temporarily unavailable, please try again later (%s)", infra.Code)
	}

	var domain *client.DomainError
	if errors.As(err, &domain) {
		switch domain.Code {
		case dErrors.CodeDuplicateEmail:
			return "error: email: already registered"
		case dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeBadRequest:
			return "error: invalid input: " + domain.Error()
		case dErrors.CodeNotFound:
			return "error: not found: " + domain.Error()
		}
		return "error: " + domain.Error()
	}
	return "error: " + err.Error()
}
