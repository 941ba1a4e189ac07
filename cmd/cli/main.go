// Command dg is a CLI client for the docgate service.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	api "github.com/and161185/docgate/internal/api/docgatev1"
	grpcserver "github.com/and161185/docgate/internal/server/grpc"
)

// ---- config/token store ----

// cliEnv holds defaults taken from the environment; flags override them.
type cliEnv struct {
	Addr   string `env:"DOCGATE_ADDR" envDefault:"localhost:8443"`
	Token  string `env:"DOCGATE_TOKEN"`
	JWTKey string `env:"DOCGATE_JWT_KEY"`
}

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "docgate")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "docgate")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	_ = os.MkdirAll(cfgDir(), 0o700)
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (run dg token -save or set DOCGATE_TOKEN)")
	}
	return tf.AccessToken, nil
}

// resolveToken picks the -token flag, then DOCGATE_TOKEN, then the saved token.
func resolveToken(flagTok, envTok string) (string, error) {
	switch {
	case flagTok != "":
		return flagTok, nil
	case envTok != "":
		return envTok, nil
	}
	return loadToken()
}

// tokenExpiry reads exp from a token without verifying it.
func tokenExpiry(tok string) time.Time {
	var claims jwt.RegisteredClaims
	_, _, err := jwt.NewParser().ParseUnverified(tok, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return time.Now().Add(15 * time.Minute)
	}
	return claims.ExpiresAt.Time
}

// ---- grpc dial ----

type bearerCreds struct {
	token  string
	secure bool
}

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}
func (b bearerCreds) RequireTransportSecurity() bool { return b.secure }

func loadTLS(caPath string, skipVerify bool) (credentials.TransportCredentials, error) {
	if skipVerify {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

type dialOpts struct {
	addr       string
	caPath     string
	skipVerify bool
	plaintext  bool
	bearer     string
}

func dial(o dialOpts) (*grpc.ClientConn, api.DocGateClient, error) {
	creds := insecure.NewCredentials()
	if !o.plaintext {
		var err error
		if creds, err = loadTLS(o.caPath, o.skipVerify); err != nil {
			return nil, nil, err
		}
	}
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(256 << 20)),
	}
	if o.bearer != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerCreds{token: o.bearer, secure: !o.plaintext}))
	}
	cc, err := grpc.NewClient(o.addr, opts...)
	if err != nil {
		return nil, nil, err
	}
	return cc, api.NewDocGateClient(cc), nil
}

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage() {
	fmt.Fprintf(os.Stderr, `dg CLI
Usage:
  dg [-addr HOST:PORT] [-cacert file | -insecure | -plaintext] [-token JWT] <cmd> [args]

Commands:
  version
  login         -token <jwt>                            (store an issued token)
  token         -sub <uuid> -name <name> [-role user|admin] [-ttl 1h] [-save]   (needs DOCGATE_JWT_KEY)
  upload        -title <t> -desc <d> -type <tag> -file <path|->
  list          [-search s] [-type tag] [-status S] [-owner uuid] [-page n] [-limit n]
  get           -id <uuid>
  update        -id <uuid> [-title t] [-desc d] [-type tag]
  download      -id <uuid> [-o path|-]
  rm            -id <uuid> -ver <n> [-reason r]        (request deletion)
  replace       -id <uuid> -ver <n> [-reason r]        (request replacement)
  approvals     [-limit n] [-offset n]
  approval      -id <uuid>
  review        -id <uuid> -outcome approve|reject [-comment c] [-file path]
  notifications [-limit n]
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands and configures TLS/auth for RPC calls.
func main() {
	var ce cliEnv
	if err := env.Parse(&ce); err != nil {
		fail(err)
	}

	// global flags
	addr := flag.String("addr", ce.Addr, "server addr")
	caPath := flag.String("cacert", "", "CA cert (PEM)")
	skipVerify := flag.Bool("insecure", false, "skip cert verify (dev)")
	plaintext := flag.Bool("plaintext", false, "connect without TLS (dev)")
	tokenFlag := flag.String("token", "", "bearer token (default $DOCGATE_TOKEN or saved token)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	switch cmd {
	case "version":
		fmt.Printf("dg %s (%s)\n", version, buildDate)
		return
	case "token":
		if err := cmdToken(os.Stdout, args, ce.JWTKey); err != nil {
			fail(err)
		}
		return
	case "login":
		if err := cmdLogin(os.Stdout, args); err != nil {
			fail(err)
		}
		return
	}
	if _, ok := commands[cmd]; !ok {
		usage()
	}

	token, err := resolveToken(*tokenFlag, ce.Token)
	if err != nil {
		fail(err)
	}
	cc, cli, err := dial(dialOpts{addr: *addr, caPath: *caPath, skipVerify: *skipVerify, plaintext: *plaintext, bearer: token})
	if err != nil {
		fail(err)
	}
	defer cc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a := &app{cl: cli, out: os.Stdout}
	if err := a.run(ctx, cmd, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		cc.Close()
		fail(err)
	}
}

// ---- helpers ----

func fail(err error) {
	if s, ok := status.FromError(err); ok {
		if r := grpcserver.ConflictReason(err); r != "" {
			fmt.Fprintf(os.Stderr, "rpc error: code=%s reason=%s msg=%s\n", s.Code(), r, s.Message())
		} else {
			fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		}
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
