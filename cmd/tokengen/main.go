// Package main mints bearer tokens for the decision API in local and test
// environments. The token subject is the identity lookup key.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	jwttoken "github.com/TylerGelinas/socure/internal/jwt_token"
	"github.com/TylerGelinas/socure/internal/platform/config"
)

const (
	// devSigningKey matches config.example.yaml.
	devSigningKey   = "dev-secret-key-change-in-production"
	defaultTokenTTL = 15 * time.Minute
)

type options struct {
	subject    string
	signingKey string
	issuer     string
	audience   string
	env        string
	ttl        time.Duration
	jsonOutput bool
}

type tokenOutput struct {
	Token     string            `json:"token"`
	Type      string            `json:"type"`
	Subject   string            `json:"subject"`
	ExpiresIn string            `json:"expires_in"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(2)
	}
	if err := generate(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}
}

// parseFlags fills options from flags. Issuer, audience and signing key fall
// back to SOCURE_* variables and then to the gateway defaults.
func parseFlags(args []string, stderr io.Writer) (options, error) {
	defaults := config.Default().Server
	key := os.Getenv(config.EnvPrefix + "JWT_SIGNING_KEY")
	if key == "" {
		key = devSigningKey
	}
	issuer := envOr("JWT_ISSUER", defaults.JWTIssuer)
	audience := envOr("JWT_AUDIENCE", defaults.JWTAudience)

	var o options
	fs := flag.NewFlagSet("tokengen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.subject, "subject", "", "identity subject (required)")
	fs.StringVar(&o.signingKey, "key", key, "HS256 signing key")
	fs.StringVar(&o.issuer, "issuer", issuer, "token issuer")
	fs.StringVar(&o.audience, "audience", audience, "token audience")
	fs.StringVar(&o.env, "env", "dev", "environment claim")
	fs.DurationVar(&o.ttl, "ttl", defaultTokenTTL, "token time-to-live")
	fs.BoolVar(&o.jsonOutput, "json", false, "output as JSON")
	fs.Usage = func() {
		fmt.Fprintln(stderr, `tokengen - mint a bearer token for POST /decision/evaluate

WARNING: defaults use a development signing key. Never use these tokens in production.

Usage:
  tokengen -subject user-ada [-ttl 1h] [-json]`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if o.subject == "" {
		fs.Usage()
		return options{}, errors.New("-subject is required")
	}
	if o.ttl <= 0 {
		return options{}, errors.New("-ttl must be positive")
	}
	return o, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(config.EnvPrefix + name); v != "" {
		return v
	}
	return fallback
}

func generate(ctx context.Context, o options, out io.Writer) error {
	svc := jwttoken.NewJWTService(o.signingKey, o.issuer, o.audience, o.ttl)
	svc.SetEnv(o.env)

	token, err := svc.GenerateAccessToken(ctx, o.subject)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	if o.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tokenOutput{
			Token:     token,
			Type:      "access_token",
			Subject:   o.subject,
			ExpiresIn: o.ttl.String(),
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
			},
		})
	}

	fmt.Fprintln(out, "Access Token (JWT)")
	fmt.Fprintln(out, "==================")
	fmt.Fprintf(out, "Subject:    %s\n", o.subject)
	fmt.Fprintf(out, "Issuer:     %s\n", o.issuer)
	fmt.Fprintf(out, "Audience:   %s\n", o.audience)
	fmt.Fprintf(out, "Expires In: %s\n", o.ttl)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Token:")
	fmt.Fprintln(out, token)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, `  curl -X POST -H "Authorization: Bearer <token>" http://localhost:8080/decision/evaluate`)
	return nil
}
