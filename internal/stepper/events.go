package stepper

// Listener receives the notifications a Stepper emits.
type Listener interface {
	OnResults(batch []Result)
	OnReset()
	OnParameterChanged(id string, value float64)
	OnError(err error)
}

// Funcs adapts optional functions to a Listener; nil fields are ignored.
type Funcs struct {
	Results          func(batch []Result)
	Reset            func()
	ParameterChanged func(id string, value float64)
	Error            func(err error)
}

func (f Funcs) OnResults(batch []Result) {
	if f.Results != nil {
		f.Results(batch)
	}
}

func (f Funcs) OnReset() {
	if f.Reset != nil {
		f.Reset()
	}
}

func (f Funcs) OnParameterChanged(id string, value float64) {
	if f.ParameterChanged != nil {
		f.ParameterChanged(id, value)
	}
}

func (f Funcs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}
