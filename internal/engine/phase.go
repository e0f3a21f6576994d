package engine

// Phase identifies where the reconciler is in its run. Transitions are
// strictly forward; Aborted is reachable only from the preflight phases.
type Phase string

const (
	PhaseNotStarted        Phase = "not_started"
	PhaseCheckingPrivilege Phase = "checking_privilege"
	PhaseBootstrapping     Phase = "bootstrapping_package_manager"
	PhaseReconciling       Phase = "reconciling"
	PhaseReported          Phase = "reported"
	PhaseDone              Phase = "done"
	PhaseAborted           Phase = "aborted"
)
