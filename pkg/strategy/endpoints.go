package strategy

// REST paths served by the strategy backend.
const (
	PathList           = "/api/strategies"
	PathDetail         = "/api/strategies/detail"
	PathCreate         = "/api/strategies/create"
	PathBatchCreate    = "/api/strategies/batch-create"
	PathUpdate         = "/api/strategies/update"
	PathStop           = "/api/strategies/stop"
	PathStart          = "/api/strategies/start"
	PathDelete         = "/api/strategies/delete"
	PathBatchStart     = "/api/strategies/batch-start"
	PathBatchStop      = "/api/strategies/batch-stop"
	PathBatchDelete    = "/api/strategies/batch-delete"
	PathTestConnection = "/api/strategies/test-connection"
	PathTrades         = "/api/strategies/trades"
	PathPositions      = "/api/strategies/positions"
	PathEquityCurve    = "/api/strategies/equityCurve"
	PathNotifications  = "/api/strategies/notifications"
	PathImport         = "/api/strategies/import"
	PathExport         = "/api/strategies/export"
	PathSync           = "/api/strategies/sync"
)
