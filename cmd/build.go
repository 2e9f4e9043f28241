package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/pipeline"
)

var (
	buildPersonID string
	buildName     string
	buildQID      string
	buildORCID    string
	buildAliases  []string
	buildForce    bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build one person profile inline",
	Long: `Runs one build synchronously: route sources, fetch, verify, persist,
update the career graph and rescore.

Examples:
  # Rebuild a known person
  build --person-id 7f3c...

  # Seed and build a new person
  build --person-id p-42 --name "Jane Doe" --qid Q999 --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("build"); err != nil {
			return err
		}

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		req := model.BuildRequest{
			PersonID:     buildPersonID,
			PersonName:   buildName,
			QID:          buildQID,
			ORCID:        buildORCID,
			Aliases:      buildAliases,
			ForceRefresh: buildForce,
		}
		res, err := env.Pipeline.Build(ctx, req)
		if err != nil {
			return eris.Wrap(err, "build")
		}

		name := buildName
		if p, err := env.Store.GetPerson(ctx, res.PersonID); err == nil && p != nil {
			name = p.Name
		}
		fmt.Fprint(cmd.OutOrStdout(), pipeline.FormatReport(name, res))

		zap.L().Info("build finished",
			zap.String("person_id", res.PersonID),
			zap.String("status", string(res.Status)),
			zap.Int("completeness", res.Completeness),
		)
		return nil
	},
}

func init() {
	f := buildCmd.Flags()
	f.StringVar(&buildPersonID, "person-id", "", "person id to build (required)")
	f.StringVar(&buildName, "name", "", "display name, required for unknown persons")
	f.StringVar(&buildQID, "qid", "", "knowledge-graph QID")
	f.StringVar(&buildORCID, "orcid", "", "ORCID identifier")
	f.StringSliceVar(&buildAliases, "alias", nil, "alternate names (repeatable)")
	f.BoolVar(&buildForce, "force", false, "ignore incremental windows and enable cost-guarded sources")
	_ = buildCmd.MarkFlagRequired("person-id")
	rootCmd.AddCommand(buildCmd)
}
