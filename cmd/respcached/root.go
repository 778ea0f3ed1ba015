package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/respcache/cache"
	"github.com/jonwraymond/respcache/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "respcached",
		Short:         "Response cache for the game platform API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newKeyCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		addr     string
		logLevel string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: "Run the HTTP server. Settings come from RESPCACHE_* environment\n" +
			"variables; flags override them.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = logLevel
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return serve(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "debug|info|warn|error")
	return cmd
}

func newKeyCmd() *cobra.Command {
	var (
		method  string
		vary    []string
		headers []string
	)
	cmd := &cobra.Command{
		Use:   "key <path?query>",
		Short: "Print the cache key a request would use",
		Example: "  respcached key /users/0xabc/balance\n" +
			"  respcached key '/games?sort=hot' --vary Accept-Language -H 'Accept-Language: en'",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := url.ParseRequestURI(args[0])
			if err != nil {
				return fmt.Errorf("parse target: %w", err)
			}
			h := http.Header{}
			for _, line := range headers {
				name, value, ok := strings.Cut(line, ":")
				if !ok {
					return fmt.Errorf("header %q: want Name: value", line)
				}
				h.Add(strings.TrimSpace(name), strings.TrimSpace(value))
			}

			key, err := cache.NewDefaultKeyGenerator().Key(cache.KeyRequest{
				Method:   strings.ToUpper(method),
				Path:     u.EscapedPath(),
				RawQuery: u.RawQuery,
				Header:   h,
				Vary:     vary,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "request method")
	cmd.Flags().StringSliceVar(&vary, "vary", nil, "request headers that are part of the key")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "request header, Name: value")
	return cmd
}
