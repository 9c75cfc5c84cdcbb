package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusdesk/officehours/internal/api/dto"
)

func newLocatorCmd() *cobra.Command {
	var api string
	cmd := &cobra.Command{
		Use:   "locator <faculty-id>",
		Short: "Print the scannable locator for a faculty member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := strings.TrimRight(api, "/") + "/api/faculty/" + url.PathEscape(args[0]) + "/qr-data"
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, endpoint, nil)
			if err != nil {
				return err
			}
			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("GET %s: %s", endpoint, resp.Status)
			}
			var body dto.QRDataResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), body.QRData)
			return nil
		},
	}
	cmd.Flags().StringVar(&api, "api", "http://localhost:5000", "Server base URL")
	return cmd
}
