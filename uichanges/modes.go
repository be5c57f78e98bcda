package uichanges

type ViewMode string

const (
	OverviewView     ViewMode = "overview"
	ProtectionView   ViewMode = "protection"
	OptimizationView ViewMode = "optimization"
	HistoryView      ViewMode = "history"
	InfoView         ViewMode = "info"
)

type Feature string

const (
	StopLoss         Feature = "stopLoss"
	AutoSell         Feature = "autoSell"
	AutoBuy          Feature = "autoBuy"
	ConstantMultiple Feature = "constantMultiple"
)

// TabChange is the vault page's active tab.
type TabChange struct {
	CurrentMode ViewMode
}

// ProtectionModeChange is the automation feature shown in the protection tab.
type ProtectionModeChange struct {
	CurrentMode Feature
}

type ChangeTab struct{ Mode ViewMode }

type ChangeMode struct{ Mode Feature }

func (ChangeTab) Kind() string  { return "change-tab" }
func (ChangeMode) Kind() string { return "change-mode" }

func reduceTab(s TabChange, a ChangeTab) TabChange {
	s.CurrentMode = a.Mode
	return s
}

func reduceProtectionMode(s ProtectionModeChange, a ChangeMode) ProtectionModeChange {
	s.CurrentMode = a.Mode
	return s
}
