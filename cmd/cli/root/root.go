package root

import (
	"github.com/spf13/cobra"

	"github.com/crucial707/auditlog-admin/cmd/cli/auth"
	"github.com/crucial707/auditlog-admin/cmd/cli/contenttypes"
	"github.com/crucial707/auditlog-admin/cmd/cli/entries"
	"github.com/crucial707/auditlog-admin/cmd/cli/flush"
	"github.com/crucial707/auditlog-admin/cmd/cli/users"
)

// Exported RootCmd
var RootCmd = &cobra.Command{
	Use:           "auditlog",
	Short:         "Audit log admin CLI",
	Long:          "Command line interface for browsing audit log entries through the admin API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	auth.InitAuth(RootCmd)
	entries.InitEntries(RootCmd)
	contenttypes.InitContentTypes(RootCmd)
	users.InitUsers(RootCmd)
	flush.InitFlush(RootCmd)
}

// GetRoot returns the RootCmd
func GetRoot() *cobra.Command {
	return RootCmd
}
