package pin

// Reason is a stable denial (or OK) code surfaced to clients. The code
// identifies the first failing check, so changing rule order changes the
// codes callers observe.
type Reason string

const (
	ReasonOK         Reason = "OK"
	ReasonTimeWindow Reason = "TIME_WINDOW"
	ReasonBlocked    Reason = "BLOCKED"
	ReasonAudience   Reason = "AUDIENCE"
	ReasonLists      Reason = "LISTS"
	ReasonRelPref    Reason = "REL_PREF"
	ReasonNotifyPref Reason = "NOTIFY_PREF"
	ReasonDistance   Reason = "DISTANCE"
	ReasonFutureSelf Reason = "FUTURE_SELF"
)

// PolicyInput is the decision-table input assembled per evaluation.
// Ephemeral: built and consumed inside one evaluation call.
type PolicyInput struct {
	TimeEligible            bool
	Blocked                 bool
	AllowedByAudience       bool
	HasACL                  bool
	ACLAllowed              bool
	CanSeePins              bool
	ForNotification         bool
	CanReceiveNotifications bool
	RevealType              RevealType
	InRevealRadius          bool
	FutureSelfMode          bool
}

// Decision is an allow/deny verdict with its reason code. Denial is a
// value, not an error.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}

func allow() Decision        { return Decision{Allowed: true, Reason: ReasonOK} }
func deny(r Reason) Decision { return Decision{Allowed: false, Reason: r} }

// policyRule pairs a deny predicate with the reason reported when it fires.
type policyRule struct {
	denies func(PolicyInput) bool
	reason Reason
}

// policyRules is evaluated in order with short-circuit on the first match.
// The order is load-bearing: BLOCKED precedes AUDIENCE, AUDIENCE precedes
// LISTS, and DISTANCE precedes FUTURE_SELF.
var policyRules = []policyRule{
	{func(in PolicyInput) bool { return !in.TimeEligible }, ReasonTimeWindow},
	{func(in PolicyInput) bool { return in.Blocked }, ReasonBlocked},
	{func(in PolicyInput) bool { return !in.AllowedByAudience }, ReasonAudience},
	{func(in PolicyInput) bool { return in.HasACL && !in.ACLAllowed }, ReasonLists},
	{func(in PolicyInput) bool { return !in.CanSeePins }, ReasonRelPref},
	{func(in PolicyInput) bool { return in.ForNotification && !in.CanReceiveNotifications }, ReasonNotifyPref},
	{func(in PolicyInput) bool { return in.RevealType == RevealByReach && !in.InRevealRadius }, ReasonDistance},
	{func(in PolicyInput) bool { return in.FutureSelfMode && !in.InRevealRadius }, ReasonFutureSelf},
}

// EvaluatePolicy runs the ordered rule chain and returns the first denial,
// or an OK decision when every rule passes.
func EvaluatePolicy(in PolicyInput) Decision {
	for _, rule := range policyRules {
		if rule.denies(in) {
			return deny(rule.reason)
		}
	}
	return allow()
}
