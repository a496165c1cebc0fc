package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"suitedash/backend"
	"suitedash/backend/suitedash"
	"suitedash/internal/cache"
	"suitedash/internal/paging"
	"suitedash/internal/utils"
)

// listOptions are the flags of '<type> list'.
type listOptions struct {
	pages    int
	refresh  bool
	pageSize int
}

// resourceOps runs the per-type commands without exposing the record type.
type resourceOps interface {
	list(ctx context.Context, a *app, opts listOptions) error
	get(ctx context.Context, a *app, id string, useCache bool) error
	create(ctx context.Context, a *app, payload map[string]any) error
	update(ctx context.Context, a *app, id string, payload map[string]any) error
	remove(ctx context.Context, a *app, id string) error
}

func opsFor(rt backend.ResourceType) resourceOps {
	switch rt {
	case backend.Contacts:
		return typedOps[backend.Contact]{rt: rt}
	case backend.Projects:
		return typedOps[backend.Project]{rt: rt}
	case backend.Files:
		return typedOps[backend.File]{rt: rt}
	default:
		return typedOps[backend.Task]{rt: rt}
	}
}

func newResourceCmd(rt backend.ResourceType, stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	ops := opsFor(rt)
	resCmd := &cobra.Command{
		Use:     string(rt),
		Aliases: []string{rt.Singular()},
		Short:   fmt.Sprintf("Browse and edit %s", rt),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s page by page", rt),
		Long: fmt.Sprintf("List %s. The last saved first page is shown when the API cannot be reached. "+
			"Use --pages to load further pages and --refresh to bypass the cache.", rt),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts listOptions
			opts.pages, _ = cmd.Flags().GetInt("pages")
			opts.refresh, _ = cmd.Flags().GetBool("refresh")
			opts.pageSize, _ = cmd.Flags().GetInt("page-size")
			if opts.pages < 1 {
				return utils.WrapWithSuggestion(fmt.Errorf("invalid --pages value: %d", opts.pages), "Pass 1 or more")
			}
			if opts.pageSize != 0 {
				if err := utils.ValidatePageSize(opts.pageSize); err != nil {
					return err
				}
			}
			return run(cmd, cfg, stdout, stderr, rt, "", func(ctx context.Context, a *app) error {
				return ops.list(ctx, a, opts)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	listCmd.Flags().Int("pages", 1, "Number of pages to load")
	listCmd.Flags().Bool("refresh", false, "Reload the first page from the API, bypassing the cache")
	listCmd.Flags().Int("page-size", 0, "Items per page (default from config)")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: fmt.Sprintf("Show one %s", rt.Singular()),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := utils.ValidateID(args[0]); err != nil {
				return err
			}
			noCache, _ := cmd.Flags().GetBool("no-cache")
			return run(cmd, cfg, stdout, stderr, rt, args[0], func(ctx context.Context, a *app) error {
				return ops.get(ctx, a, args[0], !noCache)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	getCmd.Flags().Bool("no-cache", false, "Always fetch from the API")

	createCmd := &cobra.Command{
		Use:   "create",
		Short: fmt.Sprintf("Create a %s", rt.Singular()),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := payloadFlag(cmd)
			if err != nil {
				return err
			}
			return run(cmd, cfg, stdout, stderr, rt, "", func(ctx context.Context, a *app) error {
				return ops.create(ctx, a, payload)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	createCmd.Flags().String("data", "", "JSON object with the record fields")

	resCmd.AddCommand(listCmd, getCmd, createCmd)

	if rt.Mutable() {
		updateCmd := &cobra.Command{
			Use:   "update <id>",
			Short: fmt.Sprintf("Update a %s", rt.Singular()),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := utils.ValidateID(args[0]); err != nil {
					return err
				}
				payload, err := payloadFlag(cmd)
				if err != nil {
					return err
				}
				return run(cmd, cfg, stdout, stderr, rt, args[0], func(ctx context.Context, a *app) error {
					return ops.update(ctx, a, args[0], payload)
				})
			},
			SilenceUsage:  true,
			SilenceErrors: true,
		}
		updateCmd.Flags().String("data", "", "JSON object with the fields to change")

		deleteCmd := &cobra.Command{
			Use:   "delete <id>",
			Short: fmt.Sprintf("Delete a %s", rt.Singular()),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := utils.ValidateID(args[0]); err != nil {
					return err
				}
				if !confirm(cmd, cfg, stdout, fmt.Sprintf("Delete %s %s?", rt.Singular(), args[0])) {
					_, _ = fmt.Fprintln(stdout, "Cancelled")
					return nil
				}
				return run(cmd, cfg, stdout, stderr, rt, args[0], func(ctx context.Context, a *app) error {
					return ops.remove(ctx, a, args[0])
				})
			},
			SilenceUsage:  true,
			SilenceErrors: true,
		}
		deleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
		resCmd.AddCommand(updateCmd, deleteCmd)
	}

	if rt == backend.Files {
		resCmd.AddCommand(newFilesUploadCmd(stdout, stderr, cfg), newFilesProjectCmd(stdout, stderr, cfg))
	}
	return resCmd
}

func payloadFlag(cmd *cobra.Command) (map[string]any, error) {
	data, _ := cmd.Flags().GetString("data")
	if strings.TrimSpace(data) == "" {
		return nil, utils.ErrInvalidPayload(fmt.Errorf("--data is required"))
	}
	return utils.ParsePayload(data)
}

// confirm asks before a destructive action unless --yes was given.
func confirm(cmd *cobra.Command, cfg *Config, stdout io.Writer, question string) bool {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true
	}
	stdin := cfg.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	return utils.PromptYesNoWithReader(question, stdin, stdout)
}

type typedOps[T backend.Record] struct {
	rt backend.ResourceType
}

type listJSON[T backend.Record] struct {
	Resource    string `json:"resource"`
	Items       []T    `json:"items"`
	Page        int    `json:"page"`
	HasMore     bool   `json:"has_more"`
	Stale       bool   `json:"stale"`
	RateLimited int64  `json:"rate_limited,omitempty"`
	Error       string `json:"error,omitempty"`
}

// list mounts a paginated controller, reaches the end of the list
// opts.pages-1 times and prints whatever the controller settled on.
func (o typedOps[T]) list(ctx context.Context, a *app, opts listOptions) error {
	pageSize := opts.pageSize
	if pageSize <= 0 {
		pageSize = a.conf.PageSizeFor(string(o.rt))
	}

	ctrl := paging.New[T](suitedash.For[T](a.client),
		paging.WithPageSize[T](pageSize),
		paging.WithSnapshots[T](cache.NewSnapshots[T](a.store.Storage(), string(o.rt))),
		paging.WithResourceName[T](string(o.rt)),
		paging.WithObserver(func(s paging.State[T]) {
			utils.Debugf("%s: %s, %d items, page %d", o.rt, s.Status, len(s.Items), s.Page)
		}),
	)
	defer ctrl.Unmount()

	if err := ctrl.Mount(ctx); err == nil && opts.refresh {
		_ = ctrl.Refresh(ctx)
	}
	for i := 1; i < opts.pages; i++ {
		loaded, err := ctrl.LoadMore(ctx)
		if !loaded || err != nil {
			break
		}
	}

	st := ctrl.State()
	if st.ShowFullError() {
		return st.Err
	}
	if st.Err != nil {
		a.reporter.Report(st.Err, map[string]any{"resource": string(o.rt), "page": st.Page})
		shown := fmt.Sprintf("showing the %s loaded so far", o.rt)
		if st.Stale {
			shown = fmt.Sprintf("showing saved %s", o.rt)
		}
		_, _ = fmt.Fprintf(a.stderr, "Warning: %s, the last update failed: %v\n", shown, friendlyError(st.Err, o.rt, ""))
	}

	if a.jsonOutput() {
		out := listJSON[T]{
			Resource:    string(o.rt),
			Items:       st.Items,
			Page:        st.Page,
			HasMore:     st.HasMore,
			Stale:       st.Stale,
			RateLimited: a.client.RateLimitStats().RateLimitCount(),
		}
		if out.Items == nil {
			out.Items = []T{}
		}
		if st.Err != nil {
			out.Error = st.Err.Error()
		}
		return writeJSON(a.stdout, out)
	}

	if len(st.Items) == 0 {
		_, _ = fmt.Fprintf(a.stdout, "No %s found\n", o.rt)
		return nil
	}
	printRecords(a.stdout, st.Items)
	if st.HasMore {
		_, _ = fmt.Fprintf(a.stdout, "\nMore %s available (use --pages %d)\n", o.rt, st.Page+1)
	}
	return nil
}

func (o typedOps[T]) get(ctx context.Context, a *app, id string, useCache bool) error {
	rec, err := suitedash.For[T](a.client).Get(ctx, id, useCache)
	if err != nil {
		return err
	}
	return printRecord(a, rec)
}

func (o typedOps[T]) create(ctx context.Context, a *app, payload map[string]any) error {
	rec, err := suitedash.For[T](a.client).Create(ctx, payload)
	if err != nil {
		return err
	}
	a.client.Invalidate(ctx, o.rt)
	if !a.jsonOutput() {
		_, _ = fmt.Fprintf(a.stdout, "Created %s %s\n", o.rt.Singular(), rec.RecordID())
	}
	return printRecord(a, rec)
}

func (o typedOps[T]) update(ctx context.Context, a *app, id string, payload map[string]any) error {
	rec, err := suitedash.For[T](a.client).Update(ctx, id, payload)
	if err != nil {
		return err
	}
	a.client.Invalidate(ctx, o.rt)
	if !a.jsonOutput() {
		_, _ = fmt.Fprintf(a.stdout, "Updated %s %s\n", o.rt.Singular(), id)
	}
	return printRecord(a, rec)
}

func (o typedOps[T]) remove(ctx context.Context, a *app, id string) error {
	if err := suitedash.For[T](a.client).Delete(ctx, id); err != nil {
		return err
	}
	a.client.Invalidate(ctx, o.rt)
	if a.jsonOutput() {
		return writeJSON(a.stdout, map[string]any{"deleted": id, "resource": string(o.rt)})
	}
	_, _ = fmt.Fprintf(a.stdout, "Deleted %s %s\n", o.rt.Singular(), id)
	return nil
}

func printRecords[T backend.Record](w io.Writer, items []T) {
	for _, item := range items {
		line := fmt.Sprintf("%6s  %s", item.RecordID(), item.Title())
		if sub := item.Subtitle(); sub != "" {
			line += "  " + sub
		}
		_, _ = fmt.Fprintln(w, line)
	}
}

// printRecord writes rec as JSON, or as sorted "field: value" lines.
func printRecord[T backend.Record](a *app, rec T) error {
	if a.jsonOutput() {
		return writeJSON(a.stdout, rec)
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(a.stdout, "%s: %v\n", k, fields[k])
	}
	return nil
}

func newFilesUploadCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a file, optionally attaching it to a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, _ := cmd.Flags().GetString("project")
			return run(cmd, cfg, stdout, stderr, backend.Files, "", func(ctx context.Context, a *app) error {
				f, err := suitedash.UploadFile(ctx, a.client, args[0], projectID)
				if err != nil {
					return err
				}
				a.client.Invalidate(ctx, backend.Files)
				if !a.jsonOutput() {
					_, _ = fmt.Fprintf(a.stdout, "Uploaded %s as file %s\n", f.Name, f.ID)
				}
				return printRecord(a, f)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().String("project", "", "Project ID to attach the file to")
	return cmd
}

func newFilesProjectCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project <project-id>",
		Short: "List the files attached to a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, _ := cmd.Flags().GetInt("page")
			noCache, _ := cmd.Flags().GetBool("no-cache")
			projectID := args[0]
			if err := utils.ValidateID(projectID); err != nil {
				return err
			}
			return run(cmd, cfg, stdout, stderr, backend.Projects, projectID, func(ctx context.Context, a *app) error {
				files, err := suitedash.ProjectFiles(ctx, a.client, projectID, page, a.conf.PageSizeFor(string(backend.Files)), !noCache)
				if err != nil {
					return err
				}
				if a.jsonOutput() {
					return writeJSON(a.stdout, files)
				}
				if len(files) == 0 {
					_, _ = fmt.Fprintf(a.stdout, "No files found for project %s\n", projectID)
					return nil
				}
				printRecords(a.stdout, files)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().Int("page", 1, "Page to show")
	cmd.Flags().Bool("no-cache", false, "Always fetch from the API")
	return cmd
}
