package presenter

// ScanModel provides the enabled state and failure reset.
type ScanModel interface {
	Enabled() bool
	SetEnabled(bool)
	ClearFailure()
}

// SessionControl narrows what the presenter needs from the scan session.
type SessionControl interface {
	Open()
	Close()
}

// ScannerView updates UI elements affected by toggling the scanner.
// The state label is owned by StatusPresenter.
type ScannerView interface {
	PreviewReset()
	ConfigEditable(bool)
}

// ScannerPresenter owns presentation logic for switching the scanner on
// and off.
type ScannerPresenter struct {
	model   ScanModel
	session SessionControl
	view    ScannerView
}

func NewScannerPresenter(model ScanModel, session SessionControl, view ScannerView) *ScannerPresenter {
	return &ScannerPresenter{model: model, session: session, view: view}
}

func (p *ScannerPresenter) ready() bool {
	return p != nil && p.model != nil && p.session != nil && p.view != nil
}

// Enable opens a scan cycle and locks the config form. Idempotent.
func (p *ScannerPresenter) Enable() {
	if !p.ready() || p.model.Enabled() {
		return
	}
	p.model.ClearFailure()
	p.model.SetEnabled(true)
	p.view.ConfigEditable(false)
	p.session.Open()
}

// Disable closes the session and resets the preview. Idempotent.
func (p *ScannerPresenter) Disable() {
	if !p.ready() || !p.model.Enabled() {
		return
	}
	p.session.Close()
	p.Settle()
}

// Settle reflects a cycle that ended on its own (decoded, failed or
// auto-closed) without touching the session.
func (p *ScannerPresenter) Settle() {
	if !p.ready() || !p.model.Enabled() {
		return
	}
	p.model.SetEnabled(false)
	p.view.PreviewReset()
	p.view.ConfigEditable(true)
}

// Toggle flips enabled state delegating to Enable/Disable.
func (p *ScannerPresenter) Toggle() {
	if !p.ready() {
		return
	}
	if p.model.Enabled() {
		p.Disable()
		return
	}
	p.Enable()
}

// Retry is the "Try Again" action: tear down whatever is left and start a
// fresh cycle.
func (p *ScannerPresenter) Retry() {
	if !p.ready() {
		return
	}
	p.Disable()
	p.Enable()
}
