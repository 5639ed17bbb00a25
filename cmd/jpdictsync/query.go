package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/birchill/hikibiki-data/pkg/config"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the local dictionary data",
}

var queryKanjiCmd = &cobra.Command{
	Use:   "kanji CHARACTERS",
	Short: "Look up one or more kanji, with radical and component breakdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryKanji,
}

var queryNamesCmd = &cobra.Command{
	Use:   "names QUERY",
	Short: "Look up a name by kanji spelling or kana reading",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryNames,
}

func init() {
	queryKanjiCmd.Flags().String("lang", "en", "Language for meanings and component names")
	queryCmd.AddCommand(queryKanjiCmd)
	queryCmd.AddCommand(queryNamesCmd)
}

func runQueryKanji(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	lang, _ := cmd.Flags().GetString("lang")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	facade, _, shutdown, err := buildFacade(cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	results, err := facade.GetKanji(context.Background(), args[0], lang)
	if err != nil {
		return fmt.Errorf("getKanji: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("(no matches)")
		return nil
	}

	for _, r := range results {
		fmt.Printf("%c  rad=%d on=%s kun=%s meaning=%s\n",
			r.C, r.Rad.Number,
			strings.Join(r.ReadingOn, ", "),
			strings.Join(r.ReadingKun, ", "),
			strings.Join(r.Meaning[lang], "; "))
		for _, c := range r.Comp {
			fmt.Printf("    + %c  %s\n", c.C, strings.Join(c.M, "; "))
		}
	}
	return nil
}

func runQueryNames(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	facade, _, shutdown, err := buildFacade(cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	results, err := facade.GetNames(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("getNames: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("(no matches)")
		return nil
	}

	for _, r := range results {
		tag := ""
		if r.KanaEquivalent {
			tag = " (kana match)"
		}
		fmt.Printf("%s / %s%s\n",
			strings.Join(r.Entry.KanjiSpell, ", "),
			strings.Join(r.Entry.KanaReading, ", "),
			tag)
	}
	return nil
}
