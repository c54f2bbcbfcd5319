package commands

import (
	"github.com/spf13/cobra"
)

func newMemberCommand(a *app) *cobra.Command {
	command := &cobra.Command{
		Use:   "member",
		Short: "Record and read member results",
	}
	command.AddCommand(newMemberAddCommand(a))
	command.AddCommand(newMemberGetCommand(a))
	return command
}

func newMemberAddCommand(a *app) *cobra.Command {
	var startTime, endTime int64

	command := &cobra.Command{
		Use:   "add",
		Short: "Record a member result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			member, err := a.svc.RecordMember(cmd.Context(), startTime, endTime)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), member)
		},
	}
	command.Flags().Int64Var(&startTime, "start", 0, "Start time (epoch millis)")
	command.Flags().Int64Var(&endTime, "end", 0, "End time (epoch millis)")
	_ = command.MarkFlagRequired("end")
	return command
}

func newMemberGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get MEMBER_ID",
		Short: "Show a member result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			member, err := a.svc.GetMember(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), member)
		},
	}
}
