package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// CreateProbeCmd creates the probe command.
func CreateProbeCmd() *cobra.Command {
	var addr string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "probe [path]",
		Short: "Send one request to a running node",
		Long: `Sends a single GET request line to the device port of a running node and prints the raw response. ` +
			`Useful for checking routes from the node itself, e.g. "pinnode probe /gpio/15/on".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			resp, err := Probe(ctx, addr, args[0])
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), resp)
			return err
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:80", "Device port address")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Connect and read timeout")
	return cmd
}

// Probe sends "GET path" to addr and returns the full response.
func Probe(ctx context.Context, addr, path string) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("connect %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return "", err
		}
	}

	w := bufio.NewWriter(conn)
	fmt.Fprintf(w, "GET %s HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", path, addr)
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}

	data, err := io.ReadAll(conn)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty response from %s", addr)
	}
	return string(data), nil
}
