package main

import (
	"fmt"

	"github.com/alecthomas/kong"
)

// CLI represents the imagerefine command-line interface.
var CLI struct {
	// Global flags
	Debug     bool   `help:"Enable debug logging." short:"d" env:"IMAGEREFINE_DEBUG"`
	LogFormat string `help:"Log output format." enum:"text,json" default:"text" name:"log-format"`

	Version    VersionCmd    `cmd:"" help:"Print version information."`
	Help       HelpCmd       `cmd:"" hidden:"" default:"1"`
	Search     SearchCmd     `cmd:"" help:"Run an iterative image-refinement search against a prompt."`
	Resume     ResumeCmd     `cmd:"" help:"Inspect a previously run session's result."`
	Providers  ProvidersCmd  `cmd:"" help:"Inspect and switch capability providers."`
	Completion CompletionCmd `cmd:"" help:"Generate shell completion scripts."`
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	printVersion()
	return nil
}

// HelpCmd prints help.
type HelpCmd struct{}

func (h *HelpCmd) Run(ctx *kong.Context) error {
	// Print top-level help (application help), not help for the implicit Help command.
	//
	// Note: Kong's Model.Help is the *description* (set via kong.Description),
	// not the rendered help text. Use PrintUsage to render full help.
	appCtx := *ctx
	if len(appCtx.Path) > 1 {
		appCtx.Path = appCtx.Path[:1]
	}
	return appCtx.PrintUsage(false)
}

// ProvidersCmd groups the provider-inspection and runtime-switch
// subcommands (spec §4.A, §4.J).
type ProvidersCmd struct {
	List   ProvidersListCmd   `cmd:"" help:"List registered providers per capability, with reachability."`
	Switch ProvidersSwitchCmd `cmd:"" help:"Switch the active provider for one or more capabilities."`
}

// printVersion prints the version string.
func printVersion() {
	fmt.Printf("imagerefine %s\n", version)
}

// CompletionCmd generates shell completion scripts.
type CompletionCmd struct {
	Shell string `arg:"" enum:"bash,zsh,fish" help:"Shell type (bash, zsh, fish)."`
}

func (c *CompletionCmd) Run() error {
	switch c.Shell {
	case "bash":
		fmt.Println("# Bash completion for imagerefine")
		fmt.Println("# Add to ~/.bashrc:")
		fmt.Println("# eval \"$(imagerefine completion bash)\"")
	case "zsh":
		fmt.Println("# Zsh completion for imagerefine")
		fmt.Println("# Add to ~/.zshrc:")
		fmt.Println("# eval \"$(imagerefine completion zsh)\"")
	case "fish":
		fmt.Println("# Fish completion for imagerefine")
		fmt.Println("# Run: imagerefine completion fish | source")
	}
	return nil
}
