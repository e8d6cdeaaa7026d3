package flags

import "github.com/urfave/cli/v2"

const (
	NodeCategory    = "NODE"
	AccountCategory = "ACCOUNT"
	TxCategory      = "TRANSACTION"
	JournalCategory = "JOURNAL"
	LoggingCategory = "LOGGING AND DEBUGGING"
	MetricsCategory = "METRICS"
	MiscCategory    = "MISC"
)

func init() {
	cli.HelpFlag.(*cli.BoolFlag).Category = MiscCategory
	cli.VersionFlag.(*cli.BoolFlag).Category = MiscCategory
}
