package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samvad-hq/samvad-devgate/internal/config"
	"github.com/samvad-hq/samvad-devgate/internal/logger"
	"github.com/samvad-hq/samvad-devgate/pkg/apiclient"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "apicall failed: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("apicall", pflag.ContinueOnError)
	method := fs.StringP("method", "X", "GET", "HTTP method")
	data := fs.StringP("data", "d", "", "JSON request body")
	headers := fs.StringArrayP("header", "H", nil, "extra header as Key: Value (repeatable)")
	fs.String("api-origin", "http://localhost:5173", "origin the /api base path is resolved against")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if fs.NArg() != 1 {
		return errors.New("usage: apicall [flags] PATH")
	}

	cfg, err := config.LoadWithFlags(fs)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.InitWithOutput(cfg, os.Stderr)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	client, err := apiclient.New(apiclient.Config{
		BaseURL:  cfg.APIOrigin,
		BasePath: cfg.APIBasePath,
		Timeout:  cfg.APITimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	return call(context.Background(), client, *method, fs.Arg(0), *data, *headers, out)
}

func call(ctx context.Context, client apiclient.API, method, path, data string, rawHeaders []string, out io.Writer) error {
	headers, err := parseHeaders(rawHeaders)
	if err != nil {
		return err
	}

	var body any
	if data != "" {
		if !json.Valid([]byte(data)) {
			return errors.New("--data must be valid JSON")
		}
		body = json.RawMessage(data)
		if headers == nil {
			headers = map[string]string{}
		}
		headers["Content-Type"] = "application/json"
	}

	resp, err := client.Do(ctx, method, path, body, headers)
	if err != nil {
		return err
	}
	if _, err := out.Write(resp.Body()); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, h := range raw {
		k, v, ok := strings.Cut(h, ":")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid header %q (expected Key: Value)", h)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}
