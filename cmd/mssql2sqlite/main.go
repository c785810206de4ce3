// Command mssql2sqlite migrates a live SQL Server database into a freshly
// created SQLite file: schema, data, and (optionally) views and
// FK-emulation triggers.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"
	"golang.org/x/term"

	"github.com/w8tcha/mssql2sqlite/convert"
	"github.com/w8tcha/mssql2sqlite/introspect"
	"github.com/w8tcha/mssql2sqlite/schema"
	"github.com/w8tcha/mssql2sqlite/sqlitegen"
	"github.com/w8tcha/mssql2sqlite/util"
)

// Options is the full set of CLI-configurable knobs, mergeable with an
// optional YAML FileConfig (config.go).
type Options struct {
	Host           string
	Port           int
	User           string
	Password       string
	DbName         string
	DestPath       string
	TargetTables   []string
	SkipTables     []string
	CreateTriggers bool
	CreateViews    bool
	DumpSchema     bool
	DryRun         bool
}

type cliFlags struct {
	User           string `short:"U" long:"user" description:"SQL Server user name" value-name:"user_name" default:"sa"`
	Password       string `short:"P" long:"password" description:"SQL Server user password, overridden by $MSSQL_PWD" value-name:"password"`
	Host           string `short:"h" long:"host" description:"Host to connect to the SQL Server instance" value-name:"host_name" default:"127.0.0.1"`
	Port           uint   `short:"p" long:"port" description:"Port used for the connection" value-name:"port_num" default:"1433"`
	Prompt         bool   `long:"password-prompt" description:"Force a SQL Server password prompt"`
	Config         string `long:"config" description:"Optional YAML config merged over flags" value-name:"config_file"`
	NoTriggers     bool   `long:"no-triggers" description:"Skip synthesizing foreign-key-emulation triggers"`
	NoViews        bool   `long:"no-views" description:"Skip translating views"`
	DumpSchema     bool   `long:"dump-schema" description:"Print the introspected schema as JSON and exit, touching nothing at the destination"`
	DryRun         bool   `long:"dry-run" description:"Print the DDL this run would execute, without creating the destination file"`
	Help           bool   `long:"help" description:"Show this help"`
}

func parseOptions(args []string) (Options, []string) {
	var f cliFlags
	parser := flags.NewParser(&f, flags.None)
	parser.Usage = "[options] db_name dest_path"
	rest, err := parser.ParseArgs(args)
	if err != nil {
		log.Fatal(err)
	}
	if f.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if len(rest) < 1 {
		fmt.Print("No database is specified!\n\n")
		parser.WriteHelp(os.Stdout)
		os.Exit(1)
	}

	password, ok := os.LookupEnv("MSSQL_PWD")
	if !ok {
		password = f.Password
	}
	if f.Prompt {
		fmt.Print("Enter Password: ")
		pass, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			log.Fatal(err)
		}
		password = string(pass)
		fmt.Println()
	}

	opts := Options{
		Host:           f.Host,
		Port:           int(f.Port),
		User:           f.User,
		Password:       password,
		DbName:         rest[0],
		CreateTriggers: !f.NoTriggers,
		CreateViews:    !f.NoViews,
		DumpSchema:     f.DumpSchema,
		DryRun:         f.DryRun,
	}
	if len(rest) > 1 {
		opts.DestPath = rest[1]
	}

	if f.Config != "" {
		fileCfg, err := ParseFileConfig(f.Config)
		if err != nil {
			log.Fatalf("failed to read config %q: %s", f.Config, err)
		}
		fileCfg.Merge(&opts)
	}

	return opts, rest
}

func main() {
	util.InitSlog()
	opts, _ := parseOptions(os.Args[1:])

	sourceCfg := introspect.Config{
		Host:     opts.Host,
		Port:     opts.Port,
		User:     opts.User,
		Password: opts.Password,
		DbName:   opts.DbName,
	}

	switch {
	case opts.DumpSchema:
		runDumpSchema(sourceCfg)
	case opts.DryRun:
		runDryRun(sourceCfg, opts)
	default:
		runConvert(sourceCfg, opts)
	}
}

func runDumpSchema(sourceCfg introspect.Config) {
	in, err := introspect.Open(sourceCfg)
	if err != nil {
		log.Fatal(err)
	}
	defer in.Close()

	db, err := in.Introspect(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(db); err != nil {
		log.Fatal(err)
	}
}

func runDryRun(sourceCfg introspect.Config, opts Options) {
	in, err := introspect.Open(sourceCfg)
	if err != nil {
		log.Fatal(err)
	}
	defer in.Close()

	db, err := in.Introspect(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	if sel := tableSelectionHandler(opts); sel != nil {
		db.Tables = sel(db.Tables)
	}

	var out strings.Builder
	for _, t := range db.Tables {
		out.WriteString(sqlitegen.RenderTable(t))
		out.WriteString("\n")
		for _, idx := range t.Indexes {
			out.WriteString(sqlitegen.RenderIndex(idx))
			out.WriteString("\n")
		}
		for _, fk := range t.ForeignKeys {
			if !opts.CreateTriggers {
				continue
			}
			for _, tr := range sqlitegen.SynthesizeTriggers(fk) {
				out.WriteString(sqlitegen.RenderTrigger(tr))
				out.WriteString("\n")
			}
		}
	}
	if opts.CreateViews {
		for _, v := range db.Views {
			out.WriteString(v.SQL)
			out.WriteString("\n")
		}
	}
	fmt.Print(out.String())
}

func runConvert(sourceCfg introspect.Config, opts Options) {
	if opts.DestPath == "" {
		log.Fatal("a destination path is required")
	}

	coord := convert.NewCoordinator()
	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "cancellation requested, finishing current batch...")
		coord.Cancel()
	}()

	progress := func(doneFlag, success bool, percent int, message string) {
		fmt.Printf("[%3d%%] %s\n", percent, message)
		if doneFlag {
			if !success {
				fmt.Fprintf(os.Stderr, "conversion failed: %s\n", message)
			}
			close(done)
		}
	}

	err := convert.Convert(coord, convert.Options{
		Source:         sourceCfg,
		DestPath:       opts.DestPath,
		Progress:       progress,
		TableSelection: tableSelectionHandler(opts),
		CreateTriggers: opts.CreateTriggers,
		CreateViews:    opts.CreateViews,
		Logger:         slog.Default(),
	})
	if err != nil {
		log.Fatal(err)
	}

	<-done
}

func tableSelectionHandler(opts Options) convert.TableSelectionHandler {
	if len(opts.TargetTables) == 0 && len(opts.SkipTables) == 0 {
		return nil
	}
	target := make(map[string]bool, len(opts.TargetTables))
	for _, name := range opts.TargetTables {
		target[name] = true
	}
	skip := make(map[string]bool, len(opts.SkipTables))
	for _, name := range opts.SkipTables {
		skip[name] = true
	}
	return func(tables []schema.Table) []schema.Table {
		filtered := make([]schema.Table, 0, len(tables))
		for _, t := range tables {
			if len(target) > 0 && !target[t.Name] {
				continue
			}
			if skip[t.Name] {
				continue
			}
			filtered = append(filtered, t)
		}
		return filtered
	}
}
