package host

// NotificationKind identifies a page-level notification.
type NotificationKind string

const (
	KindLoad            NotificationKind = "load"
	KindConsentAccepted NotificationKind = "consent_accepted"
	KindScroll          NotificationKind = "scroll"
	KindClick           NotificationKind = "click"
	KindFocus           NotificationKind = "focus"
	KindMouseOut        NotificationKind = "mouseout"
	KindFormSubmit      NotificationKind = "form_submit"
)

// Notification is delivered to listeners registered with Host.Listen.
type Notification interface {
	Kind() NotificationKind
}

// Load signals that the page finished loading.
type Load struct{}

// ConsentAccepted signals that the visitor accepted the consent banner.
type ConsentAccepted struct{}

// Scroll carries the document scroll metrics.
type Scroll struct {
	ScrollTop    float64
	ScrollHeight float64
	ClientHeight float64
}

// Click carries the element the pointer clicked.
type Click struct {
	Target Element
}

// Focus carries the element that received focus.
type Focus struct {
	Target Element
}

// MouseOut carries the pointer's vertical position when it left an element.
type MouseOut struct {
	ClientY float64
}

// FormSubmit signals a successful form submission.
type FormSubmit struct {
	FormID    string
	FormTitle string
}

func (Load) Kind() NotificationKind            { return KindLoad }
func (ConsentAccepted) Kind() NotificationKind { return KindConsentAccepted }
func (Scroll) Kind() NotificationKind          { return KindScroll }
func (Click) Kind() NotificationKind           { return KindClick }
func (Focus) Kind() NotificationKind           { return KindFocus }
func (MouseOut) Kind() NotificationKind        { return KindMouseOut }
func (FormSubmit) Kind() NotificationKind      { return KindFormSubmit }
