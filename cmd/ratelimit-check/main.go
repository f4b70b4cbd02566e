// ratelimit-check consulta ou zera a cota do chamador no gateway.
//
//	ratelimit-check -url http://localhost:8080 [-reset] [-as 203.0.113.7]
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const statusPath = "/api/test-rate-limit"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "ratelimit-check:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("ratelimit-check", flag.ContinueOnError)
	baseURL := fs.String("url", "http://localhost:8080", "gateway base URL")
	reset := fs.Bool("reset", false, "reset the quota instead of reading it")
	as := fs.String("as", "", "send this client IP in the trusted header")
	header := fs.String("header", "CF-Connecting-IP", "trusted header used with -as")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	method := http.MethodGet
	if *reset {
		method = http.MethodDelete
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(*baseURL, "/")+statusPath, nil)
	if err != nil {
		return err
	}
	if *as != "" {
		req.Header.Set(*header, *as)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") != nil {
		pretty.Reset()
		pretty.Write(body)
	}
	fmt.Fprintln(out, pretty.String())

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: status %d", method, statusPath, resp.StatusCode)
	}
	return nil
}
