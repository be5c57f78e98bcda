package uichanges

import "github.com/shopspring/decimal"

// Action is implemented by every event published on the bus topics below.
// Kind is the event's wire name.
type Action interface {
	Kind() string
}

type CloseType string

const (
	CloseToCollateral CloseType = "collateral"
	CloseToDai        CloseType = "dai"
)

type FormKind string

const (
	AddFormKind    FormKind = "add"
	RemoveFormKind FormKind = "remove"
)

type TxDetails struct {
	Status    string
	Hash      string
	Error     string
	Cost      decimal.Decimal
	TotalCost decimal.Decimal
}

// AddForm is the stop-loss form state.
type AddForm struct {
	StopLoss               decimal.Decimal
	CloseType              CloseType
	TxDetails              *TxDetails
	CurrentForm            FormKind
	IsEditing              bool
	IsAwaitingConfirmation bool
}

type AddFormAction interface {
	Action
	addForm()
}

// RemoveForm is the remove-trigger form state.
type RemoveForm struct {
	TxDetails *TxDetails
}

type RemoveFormAction interface {
	Action
	removeForm()
}

type SetStopLoss struct{ Value decimal.Decimal }

type SetCloseType struct{ CloseType CloseType }

type SetCurrentForm struct{ Form FormKind }

type SetAwaitingConfirmation struct{ Awaiting bool }

// SetTxDetails is accepted by every form topic.
type SetTxDetails struct{ Details *TxDetails }

// SetEditing is accepted by the stop-loss and basic buy/sell forms.
type SetEditing struct{ Editing bool }

func (SetStopLoss) Kind() string             { return "stop-loss" }
func (SetCloseType) Kind() string            { return "close-type" }
func (SetCurrentForm) Kind() string          { return "current-form" }
func (SetAwaitingConfirmation) Kind() string { return "is-awaiting-confirmation" }
func (SetTxDetails) Kind() string            { return "tx-details" }
func (SetEditing) Kind() string              { return "is-editing" }

func (SetStopLoss) addForm()             {}
func (SetCloseType) addForm()            {}
func (SetCurrentForm) addForm()          {}
func (SetAwaitingConfirmation) addForm() {}
func (SetTxDetails) addForm()            {}
func (SetEditing) addForm()              {}

func (SetTxDetails) removeForm() {}

func reduceAddForm(s AddForm, a AddFormAction) AddForm {
	switch a := a.(type) {
	case SetStopLoss:
		s.StopLoss = a.Value
	case SetCloseType:
		s.CloseType = a.CloseType
	case SetTxDetails:
		s.TxDetails = a.Details
	case SetCurrentForm:
		s.CurrentForm = a.Form
	case SetEditing:
		s.IsEditing = a.Editing
	case SetAwaitingConfirmation:
		s.IsAwaitingConfirmation = a.Awaiting
	}
	return s
}

func reduceRemoveForm(s RemoveForm, a RemoveFormAction) RemoveForm {
	switch a := a.(type) {
	case SetTxDetails:
		s.TxDetails = a.Details
	}
	return s
}
