package command_scheduler

// CommandSchedulerBuilderOption is a functional option applied to a scheduler during construction via NewCommandScheduler.
type CommandSchedulerBuilderOption func(*commandScheduler)

// WithCompletionObserver registers fn to be called from the completion context after every
// submitted buffer completes, in completion order. fn must not block.
//
// Parameters:
//   - fn: receives the buffer label and the completion error, if any
//
// Returns:
//   - CommandSchedulerBuilderOption: a function that applies the observer to a scheduler
func WithCompletionObserver(fn func(label string, err error)) CommandSchedulerBuilderOption {
	return func(s *commandScheduler) {
		s.observer = fn
	}
}
