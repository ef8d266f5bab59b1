package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bip/internal/output"
	"github.com/blackwell-systems/bip/internal/prefs"
	"github.com/blackwell-systems/bip/internal/suggest"
)

var (
	configureLanguage     string
	configureCommits      bool
	configureAchievements bool
	configureLearnings    bool
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Set language and suggestion types",
	Long: `Update preferences. Only the flags you pass change; everything else
keeps its current value. With no flags, the current preferences are shown.

Examples:
  bip configure --language pt-BR
  bip configure --learning-tweets=false`,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().StringVar(&configureLanguage, "language", "",
		"Language for generated posts ("+availableLanguages()+")")
	configureCmd.Flags().BoolVar(&configureCommits, "commit-tweets", true, "Suggest posts about commits")
	configureCmd.Flags().BoolVar(&configureAchievements, "achievement-tweets", true, "Suggest posts about achievements")
	configureCmd.Flags().BoolVar(&configureLearnings, "learning-tweets", true, "Suggest posts about learnings")
	rootCmd.AddCommand(configureCmd)
}

// preferenceUpdate builds an update from the flags the user actually set.
func preferenceUpdate(cmd *cobra.Command) prefs.Update {
	var u prefs.Update
	flags := cmd.Flags()
	if flags.Changed("language") {
		u.Language = &configureLanguage
	}
	var f prefs.FeaturesUpdate
	changed := false
	if flags.Changed("commit-tweets") {
		f.EnableCommitTweets = &configureCommits
		changed = true
	}
	if flags.Changed("achievement-tweets") {
		f.EnableAchievementTweets = &configureAchievements
		changed = true
	}
	if flags.Changed("learning-tweets") {
		f.EnableLearningTweets = &configureLearnings
		changed = true
	}
	if changed {
		u.Features = &f
	}
	return u
}

func runConfigure(cmd *cobra.Command, args []string) error {
	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	u := preferenceUpdate(cmd)
	title := "Current preferences"
	var p prefs.Preferences
	if u.IsEmpty() {
		p = svc.prefs.Get()
	} else {
		if p, err = svc.prefs.Update(u); err != nil {
			return errors.Wrap(err, "updating preferences")
		}
		title = "Preferences updated"
	}

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), p)
	}
	renderPreferences(cmd.OutOrStdout(), title, p)
	return nil
}

// availableLanguages lists the locales suggestions can be phrased in.
func availableLanguages() string {
	return strings.Join(suggest.DefaultLocales.Languages(), ", ")
}

func renderPreferences(w io.Writer, title string, p prefs.Preferences) {
	fmt.Fprintln(w, output.Section(title))
	fmt.Fprintln(w, " "+output.KeyValue("Language", p.Language+output.StyleMuted.Render(" (available: "+availableLanguages()+")")))
	fmt.Fprintln(w, " "+output.KeyValue("Commit posts", output.Check(p.Features.EnableCommitTweets)))
	fmt.Fprintln(w, " "+output.KeyValue("Achievement posts", output.Check(p.Features.EnableAchievementTweets)))
	fmt.Fprintln(w, " "+output.KeyValue("Learning posts", output.Check(p.Features.EnableLearningTweets)))
}
