package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imishinist/finetune-cli/internal/loader"
)

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List available generators and trainers",
	Long:  "List the generator and trainer names accepted in the name field of generator_params and finetuning_params",
	RunE:  listComponents,
}

func init() {
	rootCmd.AddCommand(componentsCmd)
}

func listComponents(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Generators:")
	for _, name := range loader.Default.Generators() {
		fmt.Fprintf(out, "  %s\n", name)
	}
	fmt.Fprintln(out, "Trainers:")
	for _, name := range loader.Default.Trainers() {
		fmt.Fprintf(out, "  %s\n", name)
	}
	return nil
}
