package internal

// State is the position of a frame clock in its schedule/dispatch cycle.
type State int

const (
	// StateInit is the state of a clock that never scheduled a frame
	StateInit State = iota
	// StateIdle means nothing is scheduled and nothing is in flight
	StateIdle
	StateScheduled
	StateScheduledNow
	StateScheduledLater
	// StateDispatchedOne means one frame is in flight
	StateDispatchedOne
	StateDispatchedOneAndScheduled
	StateDispatchedOneAndScheduledNow
	StateDispatchedOneAndScheduledLater
	// StateDispatchedTwo means two frames are in flight (triple buffering)
	StateDispatchedTwo

	numStates
)

// stateNone marks table entries with no valid transition.
const stateNone State = -1

var stateNames = [numStates]string{
	StateInit:                           "init",
	StateIdle:                           "idle",
	StateScheduled:                      "scheduled",
	StateScheduledNow:                   "scheduled-now",
	StateScheduledLater:                 "scheduled-later",
	StateDispatchedOne:                  "dispatched-one",
	StateDispatchedOneAndScheduled:      "dispatched-one-and-scheduled",
	StateDispatchedOneAndScheduledNow:   "dispatched-one-and-scheduled-now",
	StateDispatchedOneAndScheduledLater: "dispatched-one-and-scheduled-later",
	StateDispatchedTwo:                  "dispatched-two",
}

// String returns the state name used in logs ("dispatched-one")
func (s State) String() string {
	if s < 0 || s >= numStates {
		return "unknown"
	}
	return stateNames[s]
}

// InFlight returns how many dispatched frames await presentation.
func (s State) InFlight() int {
	switch s {
	case StateDispatchedOne,
		StateDispatchedOneAndScheduled,
		StateDispatchedOneAndScheduledNow,
		StateDispatchedOneAndScheduledLater:
		return 1
	case StateDispatchedTwo:
		return 2
	default:
		return 0
	}
}

// afterDispatch maps a scheduled state to the state reached by dispatching it.
var afterDispatch = [numStates]State{
	StateInit:                           stateNone,
	StateIdle:                           stateNone,
	StateScheduled:                      StateDispatchedOne,
	StateScheduledNow:                   StateDispatchedOne,
	StateScheduledLater:                 StateDispatchedOne,
	StateDispatchedOne:                  stateNone,
	StateDispatchedOneAndScheduled:      StateDispatchedTwo,
	StateDispatchedOneAndScheduledNow:   StateDispatchedTwo,
	StateDispatchedOneAndScheduledLater: StateDispatchedTwo,
	StateDispatchedTwo:                  stateNone,
}

// afterCompletion drops one frame in flight. It applies to presentation,
// ready notifications and aborted frames alike.
var afterCompletion = [numStates]State{
	StateInit:                           stateNone,
	StateIdle:                           stateNone,
	StateScheduled:                      stateNone,
	StateScheduledNow:                   stateNone,
	StateScheduledLater:                 stateNone,
	StateDispatchedOne:                  StateIdle,
	StateDispatchedOneAndScheduled:      StateScheduled,
	StateDispatchedOneAndScheduledNow:   StateScheduledNow,
	StateDispatchedOneAndScheduledLater: StateScheduledLater,
	StateDispatchedTwo:                  StateDispatchedOne,
}

// intent is a scheduling request remembered for later replay.
type intent int

const (
	intentNone intent = iota
	intentNormal
	intentNow
	intentLater
)

// collapseStep is what remains of a state once its pending schedule is
// cancelled, and the request to replay afterwards.
type collapseStep struct {
	to     State
	replay intent
}

var collapse = [numStates]collapseStep{
	StateInit:                           {StateInit, intentNone},
	StateIdle:                           {StateIdle, intentNone},
	StateScheduled:                      {StateIdle, intentNormal},
	StateScheduledNow:                   {StateIdle, intentNow},
	StateScheduledLater:                 {StateIdle, intentLater},
	StateDispatchedOne:                  {StateDispatchedOne, intentNone},
	StateDispatchedOneAndScheduled:      {StateDispatchedOne, intentNormal},
	StateDispatchedOneAndScheduledNow:   {StateDispatchedOne, intentNow},
	StateDispatchedOneAndScheduledLater: {StateDispatchedOne, intentLater},
	StateDispatchedTwo:                  {StateDispatchedTwo, intentNone},
}

// scheduleAction is what a scheduling request does in a given state.
type scheduleAction int

const (
	// actionIgnore: an equal or sooner update is already scheduled
	actionIgnore scheduleAction = iota
	// actionArm: move to the next state and arm the timer
	actionArm
	// actionArmIfEarlier: re-arm only for an earlier later-target
	actionArmIfEarlier
	// actionPipeline: schedule a second frame when triple buffering is wanted, else defer
	actionPipeline
	// actionDefer: remember the request until a frame completes
	actionDefer
)

type scheduleStep struct {
	action scheduleAction
	next   State
}

// request indexes scheduleTable.
type request int

const (
	requestNormal request = iota
	requestNow
	requestLater

	numRequests
)

func (r request) intent() intent {
	switch r {
	case requestNow:
		return intentNow
	case requestLater:
		return intentLater
	default:
		return intentNormal
	}
}

var scheduleTable = [numRequests][numStates]scheduleStep{
	requestNormal: {
		StateInit:                           {actionArm, StateScheduled},
		StateIdle:                           {actionArm, StateScheduled},
		StateScheduled:                      {actionIgnore, StateScheduled},
		StateScheduledNow:                   {actionIgnore, StateScheduledNow},
		StateScheduledLater:                 {actionArm, StateScheduled},
		StateDispatchedOne:                  {actionPipeline, StateDispatchedOneAndScheduled},
		StateDispatchedOneAndScheduled:      {actionIgnore, StateDispatchedOneAndScheduled},
		StateDispatchedOneAndScheduledNow:   {actionIgnore, StateDispatchedOneAndScheduledNow},
		StateDispatchedOneAndScheduledLater: {actionArm, StateDispatchedOneAndScheduled},
		StateDispatchedTwo:                  {actionDefer, StateDispatchedTwo},
	},
	requestNow: {
		StateInit:                           {actionArm, StateScheduledNow},
		StateIdle:                           {actionArm, StateScheduledNow},
		StateScheduled:                      {actionArm, StateScheduledNow},
		StateScheduledNow:                   {actionIgnore, StateScheduledNow},
		StateScheduledLater:                 {actionArm, StateScheduledNow},
		StateDispatchedOne:                  {actionPipeline, StateDispatchedOneAndScheduledNow},
		StateDispatchedOneAndScheduled:      {actionArm, StateDispatchedOneAndScheduledNow},
		StateDispatchedOneAndScheduledNow:   {actionIgnore, StateDispatchedOneAndScheduledNow},
		StateDispatchedOneAndScheduledLater: {actionArm, StateDispatchedOneAndScheduledNow},
		StateDispatchedTwo:                  {actionDefer, StateDispatchedTwo},
	},
	requestLater: {
		StateInit:                           {actionArm, StateScheduledLater},
		StateIdle:                           {actionArm, StateScheduledLater},
		StateScheduled:                      {actionIgnore, StateScheduled},
		StateScheduledNow:                   {actionIgnore, StateScheduledNow},
		StateScheduledLater:                 {actionArmIfEarlier, StateScheduledLater},
		StateDispatchedOne:                  {actionPipeline, StateDispatchedOneAndScheduledLater},
		StateDispatchedOneAndScheduled:      {actionIgnore, StateDispatchedOneAndScheduled},
		StateDispatchedOneAndScheduledNow:   {actionIgnore, StateDispatchedOneAndScheduledNow},
		StateDispatchedOneAndScheduledLater: {actionArmIfEarlier, StateDispatchedOneAndScheduledLater},
		StateDispatchedTwo:                  {actionDefer, StateDispatchedTwo},
	},
}
