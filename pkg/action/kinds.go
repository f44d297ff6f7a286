package action

// Event is the payload of a named custom event.
type Event struct {
	Event string `json:"event,omitempty"`
}

func (*Event) Kind() Kind       { return KindEvent }
func (e *Event) ExtraSize() int { return StringSize(e.Event) }

// NewEvent builds a trackEvent action.
func NewEvent(name string) Action {
	return newAction("trackEvent", &Event{Event: name})
}

// Level is the payload of a level-reached action.
type Level struct {
	Level int `json:"level"`
}

func (*Level) Kind() Kind     { return KindLevel }
func (*Level) ExtraSize() int { return 4 }

// NewLevel builds a trackLevel action.
func NewLevel(level int) Action {
	return newAction("trackLevel", &Level{Level: level})
}

// Payment is the payload of a purchase action. Amounts are decimal strings
// as reported by the payment processor.
type Payment struct {
	OrderID                   string `json:"orderId,omitempty"`
	TransactionID             string `json:"transactionId,omitempty"`
	Processor                 string `json:"processor,omitempty"`
	PsUserSpentCurrencyCode   string `json:"psUserSpentCurrencyCode,omitempty"`
	PsUserSpentCurrencyAmount string `json:"psUserSpentCurrencyAmount,omitempty"`
	PsReceivedCurrencyCode    string `json:"psReceivedCurrencyCode,omitempty"`
	PsReceivedCurrencyAmount  string `json:"psReceivedCurrencyAmount,omitempty"`
	AppCurrencyCode           string `json:"appCurrencyCode,omitempty"`
	AppCurrencyAmount         string `json:"appCurrencyAmount,omitempty"`
	PsUserStoreCountryCode    string `json:"psUserStoreCountryCode,omitempty"`
	IsSandbox                 *bool  `json:"isSandbox,omitempty"`
}

func (*Payment) Kind() Kind { return KindPayment }

func (p *Payment) ExtraSize() int {
	return StringSize(p.OrderID) +
		StringSize(p.TransactionID) +
		StringSize(p.Processor) +
		StringSize(p.PsUserSpentCurrencyCode) +
		StringSize(p.PsUserSpentCurrencyAmount) +
		StringSize(p.PsReceivedCurrencyCode) +
		StringSize(p.PsReceivedCurrencyAmount) +
		StringSize(p.AppCurrencyCode) +
		StringSize(p.AppCurrencyAmount) +
		StringSize(p.PsUserStoreCountryCode)
}

// NewPayment builds a trackPayment action.
func NewPayment(p Payment) Action {
	return newAction("trackPayment", &p)
}

// Session is the payload of a session action. The duration travels as the
// $duration property.
type Session struct{}

func (*Session) Kind() Kind     { return KindSession }
func (*Session) ExtraSize() int { return 0 }

// NewSession builds a trackSession action. A zero duration marks a session
// start and is not recorded.
func NewSession(durationMillis int64) Action {
	a := newAction("trackSession", &Session{})
	if durationMillis != 0 {
		a.Properties.Set(SessionDurationProperty, durationMillis)
	}
	return a
}

// Identify is the payload of a user identification action.
type Identify struct{}

func (*Identify) Kind() Kind     { return KindIdentify }
func (*Identify) ExtraSize() int { return 4 }

// NewIdentify builds an identify action for userID.
func NewIdentify(userID string) Action {
	a := newAction("identify", &Identify{})
	a.UserID = userID
	return a
}

// State is the payload of a state snapshot action.
type State struct {
	State Properties `json:"state,omitempty"`
}

func (*State) Kind() Kind     { return KindState }
func (*State) ExtraSize() int { return 4 }

// Equal compares state maps without regard to order.
func (s *State) Equal(o Payload) bool {
	other, ok := o.(*State)
	if !ok {
		return false
	}
	return s.State.Equal(other.State)
}

// Validate checks the state map like Action properties.
func (s *State) Validate() error {
	return s.State.Validate()
}

// NewState builds a trackState action.
func NewState(state Properties) Action {
	return newAction("trackState", &State{State: state.Clone()})
}

// AttachProperties is the payload of a user-properties action.
type AttachProperties struct{}

func (*AttachProperties) Kind() Kind     { return KindAttachProperties }
func (*AttachProperties) ExtraSize() int { return 0 }

// NewAttachProperties builds an attachProperties action.
func NewAttachProperties(props Properties) Action {
	a := newAction("attachProperties", &AttachProperties{})
	a.Properties = props.Clone()
	return a
}

// AttachEntityAttributes is the payload of an entity attribute action.
type AttachEntityAttributes struct {
	EntityName  string `json:"entityName,omitempty"`
	EntityValue string `json:"entityValue,omitempty"`
}

func (*AttachEntityAttributes) Kind() Kind { return KindAttachEntityAttributes }

func (e *AttachEntityAttributes) ExtraSize() int {
	return StringSize(e.EntityName) + StringSize(e.EntityValue)
}

// NewAttachEntityAttributes builds an attachEntityAttributes action.
func NewAttachEntityAttributes(name, value string) Action {
	return newAction("attachEntityAttributes", &AttachEntityAttributes{EntityName: name, EntityValue: value})
}
