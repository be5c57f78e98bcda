package uichanges

import "github.com/shopspring/decimal"

// BasicForm is the auto-buy or auto-sell form state. An invalid
// MaxBuyOrMinSellPrice means no price threshold.
type BasicForm struct {
	ExecCollRatio        decimal.Decimal
	TargetCollRatio      decimal.Decimal
	MaxBuyOrMinSellPrice decimal.NullDecimal
	MaxBaseFeeInGwei     decimal.Decimal
	WithThreshold        bool
	Continuous           bool
	Deviation            decimal.Decimal
	TxDetails            *TxDetails
	IsEditing            bool
}

type BasicFormAction interface {
	Action
	basicForm()
}

type SetExecutionCollRatio struct{ Ratio decimal.Decimal }

type SetTargetCollRatio struct{ Ratio decimal.Decimal }

type SetMaxBuyOrMinSellPrice struct{ Price decimal.NullDecimal }

type SetWithThreshold struct{ WithThreshold bool }

type SetContinuous struct{ Continuous bool }

type SetDeviation struct{ Deviation decimal.Decimal }

type SetMaxGasGweiPrice struct{ Gwei decimal.Decimal }

// ResetBasicForm restores the values of the trigger currently on chain.
type ResetBasicForm struct {
	ExecCollRatio        decimal.Decimal
	TargetCollRatio      decimal.Decimal
	MaxBuyOrMinSellPrice decimal.NullDecimal
	WithThreshold        bool
}

func (SetExecutionCollRatio) Kind() string   { return "execution-coll-ratio" }
func (SetTargetCollRatio) Kind() string      { return "target-coll-ratio" }
func (SetMaxBuyOrMinSellPrice) Kind() string { return "max-buy-or-sell-price" }
func (SetWithThreshold) Kind() string        { return "with-threshold" }
func (SetContinuous) Kind() string           { return "continuous" }
func (SetDeviation) Kind() string            { return "deviation" }
func (SetMaxGasGweiPrice) Kind() string      { return "max-gas-gwei-price" }
func (ResetBasicForm) Kind() string          { return "reset" }

func (SetExecutionCollRatio) basicForm()   {}
func (SetTargetCollRatio) basicForm()      {}
func (SetMaxBuyOrMinSellPrice) basicForm() {}
func (SetWithThreshold) basicForm()        {}
func (SetContinuous) basicForm()           {}
func (SetDeviation) basicForm()            {}
func (SetMaxGasGweiPrice) basicForm()      {}
func (ResetBasicForm) basicForm()          {}
func (SetTxDetails) basicForm()            {}
func (SetEditing) basicForm()              {}

func reduceBasicForm(s BasicForm, a BasicFormAction) BasicForm {
	switch a := a.(type) {
	case SetExecutionCollRatio:
		s.ExecCollRatio = a.Ratio
	case SetTargetCollRatio:
		s.TargetCollRatio = a.Ratio
	case SetMaxBuyOrMinSellPrice:
		s.MaxBuyOrMinSellPrice = a.Price
	case SetWithThreshold:
		s.WithThreshold = a.WithThreshold
	case SetContinuous:
		s.Continuous = a.Continuous
	case SetDeviation:
		s.Deviation = a.Deviation
	case SetMaxGasGweiPrice:
		s.MaxBaseFeeInGwei = a.Gwei
	case SetTxDetails:
		s.TxDetails = a.Details
	case SetEditing:
		s.IsEditing = a.Editing
	case ResetBasicForm:
		s.ExecCollRatio = a.ExecCollRatio
		s.TargetCollRatio = a.TargetCollRatio
		s.MaxBuyOrMinSellPrice = a.MaxBuyOrMinSellPrice
		s.WithThreshold = a.WithThreshold
	}
	return s
}
