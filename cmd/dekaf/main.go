package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dekaf-io/dekaf"
	"github.com/dekaf-io/dekaf/dis"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:          "dekaf",
		Short:        "Reconstruct high-level control flow from decoded Java bytecode",
		SilenceUsage: true,
	}
	root.PersistentFlags().Bool("no-color", false, "Disable colored output")
	root.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	_ = viper.BindPFlag("no-color", root.PersistentFlags().Lookup("no-color"))
	_ = viper.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))
	viper.SetEnvPrefix("dekaf")
	viper.AutomaticEnv()

	treeCmd := &cobra.Command{
		Use:   "tree [file]",
		Short: "Reconstruct a method description and print the nested tree",
		Args:  cobra.ExactArgs(1),
		RunE:  runTree,
	}
	treeCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	_ = viper.BindPFlag("output", treeCmd.Flags().Lookup("output"))

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dekaf %s (commit %s, built %s)\n", version, commit, date)
		},
	}

	root.AddCommand(treeCmd, versionCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runTree(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	input, err := decodeInput(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", args[0], err)
	}

	logger := zerolog.Nop()
	if viper.GetBool("verbose") {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	tree, err := dekaf.Reconstruct(input.classFile, input.method, input.instructions, dekaf.WithLogger(logger))
	if err != nil {
		return err
	}

	if viper.GetString("output") == "json" {
		formatted, err := prettyjson.Marshal(treeToJSON(tree))
		if err != nil {
			return err
		}
		fmt.Println(string(formatted))
		return nil
	}

	useColor := !viper.GetBool("no-color") && isatty.IsTerminal(os.Stdout.Fd())
	listing := dis.String(tree)
	if useColor {
		fmt.Print(color.CyanString(listing))
		return nil
	}
	fmt.Print(listing)
	return nil
}
