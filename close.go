package varpack

// Close releases every memory-mapped array view this pack owns. Arrays the
// caller created in memory are untouched. Close is idempotent and safe on
// packs that were never loaded.
func (p *Pack) Close() error {
	var firstErr error
	for _, a := range p.mappedArrs {
		n := int64(len(a.Bytes()))
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
			continue
		}
		if p.controller != nil {
			p.controller.ReleaseMapped(n)
		}
	}
	p.mappedArrs = nil
	p.mapped = nil
	return firstErr
}

// Flush writes dirty pages of every writable mapped view back to its
// backing file.
func (p *Pack) Flush() error {
	for _, a := range p.mappedArrs {
		if err := a.Flush(); err != nil {
			return err
		}
	}
	return nil
}
