package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tripplan",
		Short:         "Generate day-by-day travel itineraries with a language model",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().String("provider", "", "language model provider (groq | gemini)")
	root.PersistentFlags().String("model", "", "language model name")
	root.PersistentFlags().String("search", "", "search backend (duckduckgo | google | static)")
	root.PersistentFlags().String("log-level", "", "log level (debug | info | warn | error)")
	_ = viper.BindPFlag("llm.provider", root.PersistentFlags().Lookup("provider"))
	_ = viper.BindPFlag("llm.model", root.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("search.backend", root.PersistentFlags().Lookup("search"))
	_ = viper.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newPlanCmd())
	return root
}
