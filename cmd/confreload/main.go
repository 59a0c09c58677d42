// Command confreload applies a PostgreSQL-style configuration file to an
// in-memory Setting Registry, either at boot or as a reload of an already
// running registry, and optionally cross-checks the result against a live
// database server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/k0kubun/pp/v3"
	"golang.org/x/term"

	"github.com/confreload/confreload/internal/confparser"
	"github.com/confreload/confreload/internal/registry"
	"github.com/confreload/confreload/internal/reload"
	"github.com/confreload/confreload/internal/slogutil"
	"github.com/confreload/confreload/internal/verify"
	"github.com/confreload/confreload/util"
)

type options struct {
	Catalog  string `long:"catalog" description:"YAML file describing the known settings" value-name:"catalog.yml" required:"true"`
	Debug    bool   `long:"debug" description:"Pretty-print the resulting report instead of the plain summary (the parsed assignments are not printed)"`
	LogLevel string `long:"log-level" description:"debug, info, warn, or error" value-name:"level"`

	Verify   string `long:"verify" description:"Cross-check the result against a live server: postgres, mysql, mssql, or sqlite" value-name:"backend"`
	Host     string `long:"host" description:"Host of the server to verify against" value-name:"host" default:"127.0.0.1"`
	Port     uint   `long:"port" description:"Port of the server to verify against" value-name:"port"`
	Socket   string `long:"socket" description:"Unix socket of the server to verify against" value-name:"socket"`
	User     string `long:"user" description:"User for the verify connection" value-name:"user"`
	Password string `long:"password" description:"Password for the verify connection" value-name:"password"`
	DbName   string `long:"dbname" description:"Database name for the verify connection" value-name:"dbname"`
	SslMode  string `long:"ssl-mode" description:"SSL mode for the verify connection" value-name:"mode"`

	Args struct {
		Command string `positional-arg-name:"command" description:"boot or reload"`
		File    string `positional-arg-name:"config-file" description:"path to the configuration file"`
	} `positional-args:"yes" required:"yes"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[options] boot|reload config-file"
	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}

	slogutil.Init(opts.LogLevel)

	var ctx registry.Context
	switch opts.Args.Command {
	case "boot":
		ctx = registry.Boot
	case "reload":
		ctx = registry.Reload
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q: expected boot or reload\n", opts.Args.Command)
		os.Exit(1)
	}

	reg, err := registry.LoadCatalog(opts.Catalog)
	if err != nil {
		slog.Error("loading catalog", "error", err)
		os.Exit(1)
	}

	runOpts := reload.Options{
		RootProcess: true,
		DataDir:     dirOf(opts.Args.File),
	}
	report, err := reload.Run(confparser.OSFileSystem{}, reg, opts.Args.File, ctx, runOpts)
	if err != nil {
		// Run's only error return is *reload.Error: a failed boot or reload
		// is fatal here, logged once at the outer boundary rather than
		// panicking inside the library packages.
		slog.Error(err.Error())
		os.Exit(1)
	}

	if opts.Debug {
		pp.Println(report)
	} else {
		printReport(report)
	}

	if opts.Verify != "" {
		runVerify(opts, reg)
	}
}

func printReport(report *reload.Report) {
	changed := util.TransformSlice(report.Changed, func(c reload.ChangedSetting) string {
		return fmt.Sprintf("changed: %s: %q -> %q", c.Name, c.OldValue, c.NewValue)
	})
	for _, line := range changed {
		fmt.Println(line)
	}
	for _, r := range report.Removed {
		fmt.Printf("removed: %s (was %q, reverted to boot default)\n", r.Name, r.OldValue)
	}
	for _, w := range report.Warnings {
		fmt.Printf("warning: %s: %s\n", w.Name, w.Msg)
	}
}

func runVerify(opts options, reg *registry.Memory) {
	cfg := verify.Config{
		Host: opts.Host, Port: int(opts.Port), Socket: opts.Socket,
		User: opts.User, Password: opts.Password, DbName: opts.DbName, SslMode: opts.SslMode,
	}

	var checker verify.Checker
	var err error
	switch opts.Verify {
	case "postgres":
		checker, err = verify.NewPostgresChecker(cfg)
	case "mysql":
		checker, err = verify.NewMySQLChecker(cfg)
	case "mssql":
		checker, err = verify.NewMSSQLChecker(cfg)
	case "sqlite":
		checker, err = verify.NewSQLiteChecker(opts.DbName)
	default:
		fmt.Fprintf(os.Stderr, "unknown verify backend %q\n", opts.Verify)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "connecting to verify backend: %v\n", err)
		os.Exit(1)
	}
	defer checker.Close()

	var settings []registry.Setting
	reg.ForEach(func(s *registry.Setting) bool {
		settings = append(settings, *s)
		return true
	})

	if confirmPrompt() {
		mismatches, err := checker.Verify(context.Background(), settings)
		if err != nil {
			fmt.Fprintf(os.Stderr, "verify: %v\n", err)
			os.Exit(1)
		}
		for _, m := range mismatches {
			fmt.Printf("mismatch: %s: registry has %q, server reports %q\n", m.Name, m.Expected, m.Observed)
		}
	}
}

// confirmPrompt asks for confirmation before querying a live server, but
// only when stdout is an interactive terminal; a scripted invocation (the
// common case for a reload hook) proceeds without prompting.
func confirmPrompt() bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return true
	}
	fmt.Print("verify against the live server now? [y/N] ")
	var answer string
	fmt.Scanln(&answer)
	return answer == "y" || answer == "Y"
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
