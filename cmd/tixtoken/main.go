// Command tixtoken prints a signed bearer token for the operator API.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/kirinyoku/tix-booking/internal/auth"
	"github.com/kirinyoku/tix-booking/internal/clock"
)

func main() {
	_ = godotenv.Load()

	subject := pflag.StringP("subject", "s", "", "operator name recorded in the token (required)")
	role := pflag.StringP("role", "r", auth.RoleOperator, "token role: operator or viewer")
	ttl := pflag.Duration("ttl", 12*time.Hour, "token lifetime")
	secret := pflag.String("secret", os.Getenv("AUTH_SECRET"), "signing secret (default $AUTH_SECRET)")
	issuer := pflag.String("issuer", envOr("AUTH_ISSUER", "tix-booking"), "token issuer (default $AUTH_ISSUER)")
	pflag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "tixtoken: --subject is required")
		pflag.Usage()
		os.Exit(2)
	}

	if *role != auth.RoleOperator && *role != auth.RoleViewer {
		fmt.Fprintf(os.Stderr, "tixtoken: unknown role %q\n", *role)
		os.Exit(2)
	}

	issuerSvc, err := auth.NewIssuer(auth.Config{Secret: *secret, Issuer: *issuer, TTL: *ttl}, clock.NewSystem())
	if err != nil {
		fmt.Fprintf(os.Stderr, "tixtoken: %v\n", err)
		os.Exit(1)
	}

	token, exp, err := issuerSvc.Issue(*subject, *role, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tixtoken: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
	fmt.Println(token)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
