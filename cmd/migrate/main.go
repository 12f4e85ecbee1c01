package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/roackb2/rollout/config"
)

const usage = `usage: migrate [-env dev] [-source file://db/migrations] <command>

commands:
  up            apply every pending migration
  down          roll back every migration
  version       print the current schema version
  goto <n>      migrate up or down to version n
  force <n>     set the version without running migrations (clears dirty state)
  drop          drop everything in the database
  dump          write the current schema to db/schema.sql (needs pg_dump)`

func main() {
	env := flag.String("env", "dev", "Configuration name under config/")
	source := flag.String("source", "file://db/migrations", "Migration source URL")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	if err := config.LoadConfig(*env); err != nil {
		slog.Error("Migrate: failed to load configuration", "env", *env, "error", err)
		os.Exit(1)
	}
	if err := run(*source, config.Config.Database.URL(), flag.Args()); err != nil {
		slog.Error("Migrate: command failed", "command", flag.Arg(0), "error", err)
		os.Exit(1)
	}
}

func run(source, dbURL string, args []string) error {
	if args[0] == "dump" {
		return dumpSchema(dbURL, filepath.Join("db", "schema.sql"))
	}

	m, err := migrate.New(source, dbURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	switch args[0] {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "drop":
		err = m.Drop()
	case "version":
		v, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Println("no migration applied")
			return nil
		}
		if verr != nil {
			return verr
		}
		fmt.Printf("version %d (dirty: %t)\n", v, dirty)
		return nil
	case "goto", "force":
		if len(args) < 2 {
			return fmt.Errorf("%s needs a version", args[0])
		}
		v, perr := strconv.Atoi(args[1])
		if perr != nil || v < 0 {
			return fmt.Errorf("invalid version %q", args[1])
		}
		if args[0] == "goto" {
			err = m.Migrate(uint(v))
		} else {
			err = m.Force(v)
		}
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("Migrate: nothing to do", "command", args[0])
		return nil
	}
	if err != nil {
		return err
	}
	slog.Info("Migrate: done", "command", args[0])
	return nil
}

func dumpSchema(dbURL, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create schema file: %w", err)
	}
	defer file.Close()

	cmd := exec.Command("pg_dump", "-s", "-O", "-x", dbURL)
	cmd.Stdout = file
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pg_dump: %w", err)
	}
	slog.Info("Migrate: schema dumped", "path", path)
	return nil
}
