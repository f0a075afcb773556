package compiler

import "github.com/larkvm/lark/internal/vm"

// Match lowering. The capture window sits at the top of the register bank
// (slot 0 at 32-maxCaps). After the match instruction selects a branch,
// execution falls into a jump table whose entry k lands on branch k's
// dispatch code: stage the capture window as arguments, call the branch
// lambda, and jump past the remaining branches. Branch code is emitted
// first so the table offsets can be computed from real lengths.
func (fs *funcScope) emitMatch(m *Match, target int, tail bool) (bool, error) {
	n := len(m.Branches)
	capStart := maxRegisters - m.MaxCaps
	if capStart < fs.nextReg {
		return false, internalErrorf("match captures exceed the register bank (%d captures)", m.MaxCaps)
	}
	if capStart < fs.capFloor {
		fs.capFloor = capStart
	}

	patReg, err := fs.newReg()
	if err != nil {
		return false, err
	}
	subjReg, err := fs.regOfVar(m.Subject)
	if err != nil {
		return false, err
	}

	bodies := make([][]Tac, n)
	for i := 0; i < n; i++ {
		body, err := fs.collect(func() error {
			if m.BranchCaps[i] > 0 {
				fs.emit(rrr(vm.OpSetArg, 0, capStart, m.BranchCaps[i]-1))
			}
			_, err := fs.emitCall(m.Branches[i], nil, target, tail)
			return err
		})
		if err != nil {
			return false, err
		}
		// emitCall with explicit args would stage from registers; branch
		// arguments come from the capture window instead, so patch the
		// call's argument count.
		last := &body[len(body)-1]
		last.R2 = m.BranchCaps[i]
		bodies[i] = body
	}

	// Trailing jumps skip the remaining branch bodies; the last branch
	// falls through naturally.
	suffix := 0
	for i := n - 1; i >= 0; i-- {
		if i < n-1 {
			bodies[i] = append(bodies[i], ri(vm.OpJmp, 0, suffix))
		}
		suffix += len(bodies[i])
	}

	fs.emit(ri(vm.OpLoadI, patReg, m.PatAddr))
	fs.emit(rrr(vm.OpMatch, subjReg, patReg, capStart))

	before := 0
	for i := 0; i < n; i++ {
		fs.emit(ri(vm.OpJmp, 0, (n-1-i)+before))
		before += len(bodies[i])
	}
	for i := 0; i < n; i++ {
		fs.code = append(fs.code, bodies[i]...)
	}
	return tail, nil
}

// collect runs emit against a scratch buffer and returns what was emitted.
func (fs *funcScope) collect(f func() error) ([]Tac, error) {
	saved := fs.code
	fs.code = nil
	err := f()
	out := fs.code
	fs.code = saved
	return out, err
}
