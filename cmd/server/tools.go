package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sleep-diagnosis/internal/auth"
	"sleep-diagnosis/internal/diagnosis"
	"sleep-diagnosis/internal/graph"
	"sleep-diagnosis/internal/report"
)

var (
	coverageSymptoms []string
	symptomQuery     string
	symptomLimit     int
)

var coverageCmd = &cobra.Command{
	Use:     "coverage",
	Short:   "Match symptoms offline and report knowledge base coverage",
	Example: `  sleepdx coverage --symptom 打鼾 --symptom 日间嗜睡`,
	RunE:    runCoverage,
}

var symptomsCmd = &cobra.Command{
	Use:   "symptoms",
	Short: "List the symptom vocabulary, or suggest symptoms for --query",
	RunE:  runSymptoms,
}

var hashPasswordCmd = &cobra.Command{
	Use:               "hash-password [password]",
	Short:             "Print a bcrypt hash for AUTH_USERS",
	Long:              "Print a bcrypt hash for AUTH_USERS. The password is read from stdin when not given as an argument.",
	Args:              cobra.MaximumNArgs(1),
	PersistentPreRunE: skipSetup,
	RunE:              runHashPassword,
}

func init() {
	coverageCmd.Flags().StringArrayVarP(&coverageSymptoms, "symptom", "s", nil, "Symptom to test (repeatable)")
	symptomsCmd.Flags().StringVarP(&symptomQuery, "query", "q", "", "Free text to find matching symptoms for")
	symptomsCmd.Flags().IntVarP(&symptomLimit, "limit", "n", 10, "Maximum suggestions for --query")
}

// skipSetup replaces the root hook for commands that need neither config
// nor logger.
func skipSetup(cmd *cobra.Command, args []string) error { return nil }

func runCoverage(cmd *cobra.Command, args []string) error {
	if len(coverageSymptoms) == 0 {
		return errors.New("at least one --symptom is required")
	}
	kb, err := loadKnowledge(cfg.Knowledge.Path, logger)
	if err != nil {
		return err
	}

	reports := report.NewService(cfg.Report.FontPaths, logger)
	svc := diagnosis.NewService(kb, graph.NewKnowledgeStore(kb), reports, cfg.Coverage.LowThreshold, logger)
	res := svc.Test(coverageSymptoms)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Symptoms: %s\n", strings.Join(res.Symptoms, ", "))
	if len(res.Diagnoses) == 0 {
		fmt.Fprintln(out, "Matched disorders: none")
	} else {
		fmt.Fprintln(out, "Matched disorders:")
		for _, d := range res.Diagnoses {
			fmt.Fprintf(out, "  %s\n", d.Name)
		}
	}
	fmt.Fprintf(out, "Coverage: %d/%d (%.1f%%)\n", res.Coverage.MatchedCount, res.Coverage.TotalCount, res.Coverage.Rate)
	fmt.Fprintf(out, "Assessment: %s\n", res.Assessment)
	return nil
}

func runSymptoms(cmd *cobra.Command, args []string) error {
	kb, err := loadKnowledge(cfg.Knowledge.Path, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if symptomQuery == "" {
		for _, s := range kb.Vocabulary() {
			fmt.Fprintln(out, s)
		}
		return nil
	}
	suggestions := kb.Suggest(symptomQuery, symptomLimit)
	if len(suggestions) == 0 {
		return fmt.Errorf("no symptom resembles %q", symptomQuery)
	}
	for _, s := range suggestions {
		fmt.Fprintf(out, "%.2f\t%s\n", s.Score, s.Symptom)
	}
	return nil
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		sc := bufio.NewScanner(cmd.InOrStdin())
		if sc.Scan() {
			password = strings.TrimRight(sc.Text(), "\r")
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
