package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List recorded security events",
	Long: `List security events from the audit trail, newest first.

Event types:
  UNSAFE_QUERY           query refused by the security filter
  HUMAN_REVIEW_REQUIRED  query touched a sensitive topic
  RESPONSE_SANITIZED     personal data was masked in an answer`,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().String("session", "", "only events for this session")
	auditCmd.Flags().String("type", "", "only events of this type")
	auditCmd.Flags().IntP("limit", "n", 20, "maximum events to show")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, _ []string) error {
	sessionID, _ := cmd.Flags().GetString("session")
	eventType, _ := cmd.Flags().GetString("type")
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("getting limit flag: %w", err)
	}

	release, err := ensureAudit()
	if err != nil {
		return err
	}
	defer release()

	events, err := auditService.List(cmd.Context(), driven.AuditFilter{
		SessionID: sessionID,
		Type:      domain.SecurityEventType(eventType),
		Limit:     limit,
	})
	if err != nil {
		return fmt.Errorf("listing security events: %w", err)
	}

	if len(events) == 0 {
		cmd.Println("No security events recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tRISK\tSESSION\tPREVIEW")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.Type, e.RiskLevel, e.SessionID, e.Preview)
	}
	return w.Flush()
}
