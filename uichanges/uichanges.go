// Package uichanges carries interactive UI state between otherwise unconnected
// views: a topic bus whose topics fold events through a reducer and replay
// their last state.
package uichanges

import "github.com/sirupsen/logrus"

const (
	AddFormChange               = "ADD_FORM_CHANGE"
	RemoveFormChange            = "REMOVE_FORM_CHANGE"
	TabChangeSubject            = "TAB_CHANGE_SUBJECT"
	ProtectionModeChangeSubject = "PROTECTION_MODE_CHANGE_SUBJECT"
	BasicBuyFormChange          = "BASIC_BUY_FORM_CHANGE"
	BasicSellFormChange         = "BASIC_SELL_FORM_CHANGE"
)

// Changes is the configured bus with a typed handle per topic.
type Changes struct {
	*Bus

	AddForm        Topic[AddForm, AddFormAction]
	RemoveForm     Topic[RemoveForm, RemoveFormAction]
	Tab            Topic[TabChange, ChangeTab]
	ProtectionMode Topic[ProtectionModeChange, ChangeMode]
	BasicBuy       Topic[BasicForm, BasicFormAction]
	BasicSell      Topic[BasicForm, BasicFormAction]
}

// Initialize builds a bus and registers every UI topic's reducer on it.
func Initialize(logger *logrus.Entry) *Changes {
	bus := NewBus(logger)

	return &Changes{
		Bus:            bus,
		AddForm:        Register(bus, AddFormChange, reduceAddForm),
		RemoveForm:     Register(bus, RemoveFormChange, reduceRemoveForm),
		Tab:            Register(bus, TabChangeSubject, reduceTab),
		ProtectionMode: Register(bus, ProtectionModeChangeSubject, reduceProtectionMode),
		BasicBuy:       Register(bus, BasicBuyFormChange, reduceBasicForm),
		BasicSell:      Register(bus, BasicSellFormChange, reduceBasicForm),
	}
}
