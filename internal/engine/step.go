package engine

// Step identifies where a conversation currently waits for input. Text steps
// consume the next message; keyboard steps consume a button press.
type Step string

const (
	// Registration and quick-activation steps.
	StepPDConsent        Step = "pd_consent"
	StepMarketingConsent Step = "marketing_consent"
	StepSurname          Step = "surname"
	StepName             Step = "name"
	StepPhone            Step = "phone"
	StepEmail            Step = "email"
	StepCode             Step = "code"
	StepCity             Step = "city"
	StepSource           Step = "source"
	StepSerial           Step = "serial"
	StepPurchaseDate     Step = "purchase_date"
	StepReview           Step = "review"

	// Admin device-deletion steps.
	StepAdminSerial  Step = "admin_serial"
	StepAdminConfirm Step = "admin_confirm"
)

// Flow tags which scenario owns the conversation; converging steps use it to
// decide where to go next.
type Flow string

const (
	FlowRegister Flow = "register"
	FlowQuick    Flow = "quick"
	FlowEdit     Flow = "edit"
	FlowAdmin    Flow = "admin_delete"
)
