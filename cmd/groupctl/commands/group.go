package commands

import (
	"github.com/spf13/cobra"

	"github.com/mmynk/resultgroups/internal/dimensions"
)

// partitionFlags select a partition by owner and either dimension pairs or a
// signature string.
type partitionFlags struct {
	owner     int64
	dims      []string
	signature string
}

func (p *partitionFlags) register(command *cobra.Command) {
	command.Flags().Int64Var(&p.owner, "owner", 0, "Owner config ID")
	command.Flags().StringArrayVar(&p.dims, "dim", []string{}, "Dimension as name=value, repeatable") // --dim a=b --dim c=d
	command.Flags().StringVar(&p.signature, "signature", "", "Dimension signature, e.g. {D1=K1}")
	command.MarkFlagsMutuallyExclusive("dim", "signature")
	_ = command.MarkFlagRequired("owner")
}

func (p *partitionFlags) resolve() (string, error) {
	if p.signature != "" {
		return p.signature, nil
	}
	m, err := dimensions.ParsePairs(p.dims)
	if err != nil {
		return "", err
	}
	return dimensions.Canonicalize(m)
}

func newGroupCommand(a *app) *cobra.Command {
	command := &cobra.Command{
		Use:   "group",
		Short: "Save and query result groups",
	}
	command.AddCommand(newGroupSaveCommand(a))
	command.AddCommand(newGroupGetCommand(a))
	command.AddCommand(newGroupRecentCommand(a))
	command.AddCommand(newGroupHistoryCommand(a))
	return command
}

func newGroupSaveCommand(a *app) *cobra.Command {
	var (
		owner   int64
		dims    []string
		members []string
	)

	command := &cobra.Command{
		Use:   "save",
		Short: "Group recorded members under a partition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := dimensions.ParsePairs(dims)
			if err != nil {
				return err
			}
			group, err := a.svc.CreateGroup(cmd.Context(), owner, m, members)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), group)
		},
	}
	command.Flags().Int64Var(&owner, "owner", 0, "Owner config ID")
	command.Flags().StringArrayVar(&dims, "dim", []string{}, "Dimension as name=value, repeatable")
	command.Flags().StringSliceVar(&members, "members", []string{}, "Member IDs in group order") // --members=a,b --members=c
	return command
}

func newGroupGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get GROUP_ID",
		Short: "Show a group with its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			group, err := a.svc.GetGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), group)
		},
	}
}

func newGroupRecentCommand(a *app) *cobra.Command {
	var (
		p          partitionFlags
		start, end int64
	)

	command := &cobra.Command{
		Use:   "recent",
		Short: "Show the most recently saved group ending inside a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signature, err := p.resolve()
			if err != nil {
				return err
			}
			group, err := a.svc.MostRecentInWindowBySignature(cmd.Context(), p.owner, signature, start, end)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), group)
		},
	}
	p.register(command)
	command.Flags().Int64Var(&start, "start", 0, "Window start, inclusive")
	command.Flags().Int64Var(&end, "end", 0, "Window end, inclusive")
	_ = command.MarkFlagRequired("end")
	return command
}

func newGroupHistoryCommand(a *app) *cobra.Command {
	var p partitionFlags

	command := &cobra.Command{
		Use:   "history",
		Short: "List every group of a partition, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signature, err := p.resolve()
			if err != nil {
				return err
			}
			groups, err := a.svc.History(cmd.Context(), p.owner, signature)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), groups)
		},
	}
	p.register(command)
	return command
}
