// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wingedpig/arbor/internal/app"
	"github.com/wingedpig/arbor/internal/config"
)

var (
	version = "0.9"
)

func main() {
	// Check for subcommands before flag parsing
	if len(os.Args) > 1 && os.Args[1] == "init" {
		if err := runInit(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	var (
		configPath  string
		host        string
		port        int
		showVersion bool
		debug       bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: auto-detect)")
	flag.StringVar(&configPath, "c", "", "Path to config file (short)")
	flag.StringVar(&host, "host", "", "HTTP server host (overrides config)")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.BoolVar(&debug, "debug", false, "Enable debug mode")
	flag.Parse()

	if showVersion {
		fmt.Printf("arbor %s\n", version)
		os.Exit(0)
	}

	if configPath == "" {
		loader := config.NewLoader()
		found, err := loader.FindConfig()
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		configPath = found
	}

	log.Printf("Using config: %s", configPath)

	application, err := app.New(app.Options{
		ConfigPath: configPath,
		Host:       host,
		Port:       port,
		Debug:      debug,
		Version:    version,
	})
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	ctx := context.Background()
	if err := application.Run(ctx); err != nil {
		log.Fatalf("App error: %v", err)
	}
}

// runInit handles the "arbor init" command
func runInit() error {
	initFlags := flag.NewFlagSet("init", flag.ExitOnError)
	showHelp := initFlags.Bool("help", false, "Show help for init command")
	initFlags.BoolVar(showHelp, "h", false, "Show help for init command")
	initFlags.Parse(os.Args[2:])

	if *showHelp {
		fmt.Println(`Usage: arbor init [options]

Create a new arbor.hjson configuration file in the current directory.

This command walks you through setting up an Arbor configuration with
interactive prompts. The generated file is commented to help you
customize the available options.

Options:
  -h, -help    Show this help message

The command will ask about:
  - Project name (defaults to current directory name)
  - Server port (defaults to 8939)
  - Directory where session worktrees are created
  - Container port range

Examples:
  arbor init              Create config with interactive prompts
  cd myproject && arbor init`)
		return nil
	}

	configFile := "arbor.hjson"

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use a different directory", configFile)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Arbor Configuration Setup")
	fmt.Println("=========================")
	fmt.Println()
	fmt.Println("This will create an arbor.hjson configuration file in the current directory.")
	fmt.Println("Press Enter to accept defaults shown in [brackets].")
	fmt.Println()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	defaultName := filepath.Base(cwd)

	projectName := prompt(reader, "Project name", defaultName)

	portStr := prompt(reader, "Server port", "8939")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 8939
	}

	fmt.Println()
	fmt.Println("Session worktrees are created next to your repository by default.")
	createDir := prompt(reader, "Worktree create directory (or empty for default)", "")

	fmt.Println()
	fmt.Println("Container environments are bound to a free port from a fixed range.")
	firstStr := prompt(reader, "First container port", "3000")
	first, err := strconv.Atoi(firstStr)
	if err != nil {
		first = 3000
	}
	lastStr := prompt(reader, "Last container port", "3100")
	last, err := strconv.Atoi(lastStr)
	if err != nil {
		last = 3100
	}

	configContent := generateConfig(projectName, port, createDir, first, last)

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Println()
	fmt.Printf("Created %s\n", configFile)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit arbor.hjson as needed")
	fmt.Println("  2. Run: ./arbor")
	fmt.Println("  3. Open: http://localhost:" + strconv.Itoa(port))
	fmt.Println()

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

// escapeHJSONValue escapes a string for safe inclusion in an HJSON double-quoted value.
func escapeHJSONValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

func generateConfig(projectName string, port int, createDir string, firstPort, lastPort int) string {
	var sb strings.Builder

	sb.WriteString(`{
  // ===========================================================================
  // Arbor Configuration
  // ===========================================================================
  //
  // This is an HJSON file (JSON with comments and relaxed syntax).

  // ---------------------------------------------------------------------------
  // Project Metadata
  // ---------------------------------------------------------------------------
  project: {
    name: "` + escapeHJSONValue(projectName) + `"
  }

  // ---------------------------------------------------------------------------
  // HTTP Server
  // ---------------------------------------------------------------------------
  server: {
    host: "localhost"
    port: ` + strconv.Itoa(port) + `
  }

  // ---------------------------------------------------------------------------
  // Worktrees
  // ---------------------------------------------------------------------------
  // repo_dir defaults to the directory holding this file. create_dir is
  // where session worktrees land, defaulting to the parent of repo_dir.
  worktree: {
`)
	if createDir != "" {
		sb.WriteString(`    create_dir: "` + escapeHJSONValue(createDir) + `"
`)
	} else {
		sb.WriteString(`    // create_dir: "/path/to/worktrees"
`)
	}
	sb.WriteString(`  }

  // ---------------------------------------------------------------------------
  // Container Environments
  // ---------------------------------------------------------------------------
  container: {
    command: "devcontainer"
    runtime: "docker"
    port_range: {
      first: ` + strconv.Itoa(firstPort) + `
      last: ` + strconv.Itoa(lastPort) + `
    }
    start_timeout: "300s"
  }

  // ---------------------------------------------------------------------------
  // Sessions
  // ---------------------------------------------------------------------------
  session: {
    // store_path: ".arbor/sessions.json"
    command_timeout: "30s"
  }
}
`)

	return sb.String()
}
