package cmd

// Lane names one of the two texts arguments can be read from.
type Lane int

const (
	// LanePrimary is the invoking message after the prefix and command path.
	LanePrimary Lane = iota
	// LaneReply is the content of the message being replied to.
	LaneReply
)

func (l Lane) String() string {
	if l == LaneReply {
		return "reply"
	}
	return "primary"
}

// laneState is the stored cursor of one lane.
type laneState struct {
	text    string
	cursor  int
	visited bool
}

// ConversionContext walks the parameters of one command invocation and hands
// out raw arguments from the active lane. It is created per dispatch and must
// not be shared between goroutines.
type ConversionContext struct {
	command *Command
	message *Message
	svc     ServiceResolver

	lanes    [2]laneState
	hasReply bool
	active   Lane

	index    int
	argument string
	hasArg   bool
	slots    int
}

// NewConversionContext prepares a context for c. primary is the text left after
// the command path; the reply lane is available when msg has a Reply.
func NewConversionContext(c *Command, msg *Message, primary string, svc ServiceResolver) *ConversionContext {
	cc := &ConversionContext{
		command: c,
		message: msg,
		svc:     svc,
		index:   -1,
		active:  LanePrimary,
	}
	cc.lanes[LanePrimary] = laneState{text: primary, visited: true}
	if msg != nil && msg.Reply != nil {
		cc.hasReply = true
		cc.lanes[LaneReply] = laneState{text: msg.Reply.Content}
	}
	return cc
}

// Command is the command whose parameters are being converted.
func (cc *ConversionContext) Command() *Command { return cc.command }

// Message is the invoking message.
func (cc *ConversionContext) Message() *Message { return cc.message }

// Services resolves dependencies for converters within the dispatch scope.
func (cc *ConversionContext) Services() ServiceResolver { return cc.svc }

// Lane reports which text is being read.
func (cc *ConversionContext) Lane() Lane { return cc.active }

// HasReply reports whether the reply lane exists.
func (cc *ConversionContext) HasReply() bool { return cc.hasReply }

// Index is the position of the current parameter, -1 before the first call to
// NextParameter.
func (cc *ConversionContext) Index() int { return cc.index }

// Parameter is the parameter currently being converted, or nil.
func (cc *ConversionContext) Parameter() *Parameter {
	if cc.index < 0 || cc.index >= len(cc.command.Parameters) {
		return nil
	}
	return cc.command.Parameters[cc.index]
}

// Argument is the raw text of the current argument.
func (cc *ConversionContext) Argument() string { return cc.argument }

// HasArgument reports whether the last NextArgument produced a token.
func (cc *ConversionContext) HasArgument() bool { return cc.hasArg }

// Slots is the number of variadic slots taken for the current parameter.
func (cc *ConversionContext) Slots() int { return cc.slots }

// Text returns the active lane's text and its cursor.
func (cc *ConversionContext) Text() (string, int) {
	l := &cc.lanes[cc.active]
	return l.text, l.cursor
}

// NextParameter moves to the next declared parameter and switches lanes for
// it. It returns false when the parameters are exhausted, or when a second
// reply-sourced parameter would be read while the reply lane is still active.
func (cc *ConversionContext) NextParameter() bool {
	next := cc.index + 1
	if next >= len(cc.command.Parameters) {
		cc.index = len(cc.command.Parameters)
		return false
	}

	p := cc.command.Parameters[next]
	if p.FromReply && cc.hasReply {
		if cc.active == LaneReply {
			return false
		}
		cc.SwitchLane(LaneReply)
	} else if !p.FromReply && cc.active == LaneReply {
		cc.SwitchLane(LanePrimary)
	}

	cc.index = next
	cc.argument = ""
	cc.hasArg = false
	cc.slots = 0
	return true
}

// SwitchLane makes lane the active one. The cursor of the lane being left is
// kept so it resumes where it stopped; a lane entered for the first time
// starts at zero. Switching to the reply lane without a reply is a no-op.
func (cc *ConversionContext) SwitchLane(lane Lane) {
	if lane == cc.active {
		return
	}
	if lane == LaneReply && !cc.hasReply {
		return
	}
	target := &cc.lanes[lane]
	if !target.visited {
		target.cursor = 0
		target.visited = true
	}
	cc.active = lane
}

// NextArgument reads the next raw argument from the active lane. It returns
// false when the lane has nothing left, which is not an error by itself.
func (cc *ConversionContext) NextArgument() bool {
	l := &cc.lanes[cc.active]
	if l.cursor >= len(l.text) {
		cc.hasArg = false
		return false
	}

	if p := cc.Parameter(); p != nil && p.Remaining {
		rest := Remainder(l.text, l.cursor)
		l.cursor = len(l.text)
		if rest == "" {
			cc.hasArg = false
			return false
		}
		cc.argument = rest
		cc.hasArg = true
		return true
	}

	token, next, ok := NextToken(l.text, l.cursor)
	l.cursor = next
	if !ok {
		cc.hasArg = false
		return false
	}
	cc.argument = token
	cc.hasArg = true
	return true
}

// NextVariadicSlot takes another slot for the current variadic parameter. It
// returns false once the parameter's maximum has been reached. It never
// switches lanes.
func (cc *ConversionContext) NextVariadicSlot() bool {
	if !cc.slotAvailable() {
		return false
	}
	cc.slots++
	return true
}

func (cc *ConversionContext) slotAvailable() bool {
	p := cc.Parameter()
	if p == nil || !p.Variadic {
		return false
	}
	return p.Max == Unbounded || cc.slots < p.Max
}
