package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kantharos-net/LinkedinAutoPost/internal/composer"
	"github.com/kantharos-net/LinkedinAutoPost/internal/config"
	"github.com/kantharos-net/LinkedinAutoPost/internal/jobs"
)

// splitTags turns a comma-separated flag value into trimmed tags.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	tags := strings.Split(s, ",")
	for i := range tags {
		tags[i] = strings.TrimSpace(tags[i])
	}
	return tags
}

func postParamsFromFlags(cmd *cobra.Command) composer.PostParams {
	title, _ := cmd.Flags().GetString("title")
	channel, _ := cmd.Flags().GetString("channel")
	content, _ := cmd.Flags().GetString("content")
	tagsStr, _ := cmd.Flags().GetString("tags")

	return composer.PostParams{
		Title:   title,
		Channel: channel,
		Content: content,
		Tags:    splitTags(tagsStr),
	}
}

func addPostFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "post title")
	cmd.Flags().String("channel", "", "target channel (default: linkedin)")
	cmd.Flags().String("content", "", "post body text")
	cmd.Flags().String("tags", "", "comma-separated tags")
}

// --- generate ---

var generateCmd = &cobra.Command{
	Use:   "generate <brief>",
	Short: "Generate post content from a brief",
	Long: `Generate post content from a brief.

Examples:
  lap generate "a recap of our v2 launch" --tags go,release
  lap generate "hiring post for the infra team" --save --title "We're hiring"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		brief := strings.Join(args, " ")
		tagsStr, _ := cmd.Flags().GetString("tags")
		save, _ := cmd.Flags().GetBool("save")
		title, _ := cmd.Flags().GetString("title")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		content, err := a.composer.Generate(cmd.Context(), brief, splitTags(tagsStr))
		if err != nil {
			return err
		}

		fmt.Println(content)

		if save {
			job, err := a.composer.SaveDraft(composer.PostParams{
				Title:   title,
				Tags:    splitTags(tagsStr),
				Content: content,
				Prompt:  brief,
			})
			if err != nil {
				return err
			}
			printSuccess("Saved draft %s", job.ID)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().String("tags", "", "comma-separated skills to steer generation")
	generateCmd.Flags().Bool("save", false, "save the generated content as a draft")
	generateCmd.Flags().String("title", "", "title for the saved draft")
}

// --- draft ---

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Save a post as a draft",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		job, err := a.composer.SaveDraft(postParamsFromFlags(cmd))
		if err != nil {
			return err
		}
		printSuccess("Saved draft %s (%s)", job.ID, job.Title)
		return nil
	},
}

func init() {
	addPostFlags(draftCmd)
}

// --- schedule ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Schedule a post for later publishing",
	Long: `Schedule a post for later publishing.

The slot is given either as an absolute time (--at, RFC 3339 or
"2006-01-02 15:04" in the configured timezone) or as an offset from
now (--in, a Go duration like 90m or 2h30m).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		atStr, _ := cmd.Flags().GetString("at")
		inStr, _ := cmd.Flags().GetString("in")
		if (atStr == "") == (inStr == "") {
			return fmt.Errorf("exactly one of --at or --in is required")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		at, err := resolveSlot(atStr, inStr, a.settings.Settings().Timezone)
		if err != nil {
			return err
		}

		job, err := a.composer.Schedule(postParamsFromFlags(cmd), at)
		if err != nil {
			return err
		}
		printSuccess("Scheduled %s (%s) for %s", job.ID, job.Title, at.Format(time.RFC3339))
		return nil
	},
}

func resolveSlot(atStr, inStr, timezone string) (time.Time, error) {
	if inStr != "" {
		d, err := time.ParseDuration(inStr)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --in duration: %w", err)
		}
		return time.Now().Add(d), nil
	}

	if t, err := time.Parse(time.RFC3339, atStr); err == nil {
		return t, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", atStr, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at time %q (want RFC 3339 or \"2006-01-02 15:04\")", atStr)
	}
	return t, nil
}

func init() {
	addPostFlags(scheduleCmd)
	scheduleCmd.Flags().String("at", "", "absolute publish time")
	scheduleCmd.Flags().String("in", "", "publish offset from now (Go duration)")
}

// --- publish ---

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a post now",
	Long: `Publish a post now.

Either pass the post fields directly, or --id to publish an existing
draft or scheduled post. A failed publish keeps the job with its error
message; retry it with "lap jobs retry <id>".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		params := postParamsFromFlags(cmd)
		if id != "" {
			existing, ok := a.jobs.Get(id)
			if !ok {
				return fmt.Errorf("no job with id %s", id)
			}
			params.ID = existing.ID
			if params.Title == "" {
				params.Title = existing.Title
			}
			if params.Channel == "" {
				params.Channel = existing.Channel
			}
			if params.Content == "" {
				params.Content = existing.Content
			}
			if params.Tags == nil {
				params.Tags = existing.Tags
			}
		}

		job, err := a.composer.Publish(cmd.Context(), params)
		if err != nil {
			printError("Publish failed: %v", err)
			if job.ID != "" {
				printStatus("Job", "%s (attempts: %d)", job.ID, job.Attempts)
			}
			return err
		}
		printSuccess("Published %s (%s)", job.ID, job.Title)
		return nil
	},
}

func init() {
	addPostFlags(publishCmd)
	publishCmd.Flags().String("id", "", "publish an existing job by id")
}

// --- jobs ---

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and manage post jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		statusFilter, _ := cmd.Flags().GetString("status")
		search, _ := cmd.Flags().GetString("search")
		search = strings.ToLower(search)

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var filter jobs.Status
		if statusFilter != "" {
			filter, err = jobs.ParseStatus(statusFilter)
			if err != nil {
				return err
			}
		}

		list := a.jobs.List()
		shown := 0
		for _, job := range list {
			if filter != "" && job.Status != filter {
				continue
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(job.Title), search) &&
				!strings.Contains(strings.ToLower(job.Content), search) {
				continue
			}
			line := fmt.Sprintf("%s  %-10s  %-30s  attempts: %d",
				colorize(colorCyan, shortID(job.ID)),
				colorizeStatus(job.Status),
				truncate(job.Title, 30),
				job.Attempts,
			)
			if job.ScheduledFor != nil {
				line += "  at " + job.ScheduledFor.Format(time.RFC3339)
			}
			fmt.Println(line)
			shown++
		}
		if shown == 0 {
			fmt.Println("No jobs found.")
		}
		return nil
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single job as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		job, ok := a.jobs.Get(args[0])
		if !ok {
			return fmt.Errorf("no job with id %s", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	},
}

var jobsRetryCmd = &cobra.Command{
	Use:   "retry <id>",
	Short: "Requeue a job for publishing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if _, ok := a.jobs.Get(args[0]); !ok {
			return fmt.Errorf("no job with id %s", args[0])
		}
		if err := a.composer.Retry(args[0]); err != nil {
			return err
		}
		printSuccess("Requeued job %s", args[0])
		return nil
	},
}

var jobsLogsCmd = &cobra.Command{
	Use:   "logs <id>",
	Short: "Show a job's log history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		entries := a.jobs.Logs(args[0])
		if len(entries) == 0 {
			fmt.Println("No log entries.")
			return nil
		}
		for _, e := range entries {
			printLogEntry(e)
		}
		return nil
	},
}

func init() {
	jobsListCmd.Flags().String("status", "", "filter by status")
	jobsListCmd.Flags().String("search", "", "filter by title or content substring")
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsRetryCmd)
	jobsCmd.AddCommand(jobsLogsCmd)
}

// --- settings ---

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or update settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		s := a.settings.Settings()
		printStatus("apiBaseUrl", "%s", s.APIBaseURL)
		printStatus("apiToken", "%s", maskToken(s.APIToken))
		printStatus("defaultModel", "%s", s.DefaultModel)
		printStatus("defaultTemperature", "%g", s.DefaultTemperature)
		printStatus("timezone", "%s", s.Timezone)
		printStatus("enableLiveLogs", "%t", s.EnableLiveLogs)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a settings value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := settingsPatch(args[0], args[1])
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.settings.Update(patch); err != nil {
			return err
		}
		printSuccess("Set %s = %s", args[0], args[1])
		return nil
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.settings.Reset(); err != nil {
			return err
		}
		printSuccess("Settings reset to defaults")
		return nil
	},
}

func settingsPatch(key, value string) (config.Patch, error) {
	var p config.Patch
	switch key {
	case "apiBaseUrl":
		p.APIBaseURL = &value
	case "apiToken":
		p.APIToken = &value
	case "defaultModel":
		p.DefaultModel = &value
	case "defaultTemperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return p, fmt.Errorf("invalid temperature %q: %w", value, err)
		}
		p.DefaultTemperature = &f
	case "timezone":
		if _, err := time.LoadLocation(value); err != nil {
			return p, fmt.Errorf("invalid timezone %q: %w", value, err)
		}
		p.Timezone = &value
	case "enableLiveLogs":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return p, fmt.Errorf("invalid boolean %q: %w", value, err)
		}
		p.EnableLiveLogs = &b
	default:
		return p, fmt.Errorf("unknown settings key %q", key)
	}
	return p, nil
}

func maskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsResetCmd)
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend and job queue status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		s := a.settings.Settings()

		healthCtx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
		defer cancel()
		if _, err := a.client.Health(healthCtx); err != nil {
			printStatus("Backend", "unreachable at %s", s.APIBaseURL)
		} else {
			printStatus("Backend", "reachable at %s", s.APIBaseURL)
		}

		counts := make(map[jobs.Status]int)
		list := a.jobs.List()
		for _, job := range list {
			counts[job.Status]++
		}
		printStatus("Jobs", "%d total", len(list))
		for _, st := range jobs.Statuses {
			if counts[st] > 0 {
				printStatus("  "+string(st), "%d", counts[st])
			}
		}

		printStatus("Live logs", "%t", s.EnableLiveLogs)
		printStatus("Data dir", "%s", config.DefaultDataDir())
		return nil
	},
}

// --- seed / reset ---

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed sample jobs into an empty store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		seeded, err := a.jobs.Seed()
		if err != nil {
			return err
		}
		if !seeded {
			printWarning("Store already has jobs; seed skipped")
			return nil
		}
		printSuccess("Seeded sample jobs")
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all jobs and their logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL jobs and logs. Use --confirm to proceed.")
			return nil
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.jobs.Reset(); err != nil {
			return err
		}
		printSuccess("All jobs deleted")
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("confirm", false, "confirm deletion")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}
