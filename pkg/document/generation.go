package document

// Bump advances the synchronization generation of the given blocks, or of
// every block in the note when no block id is given. A renderer that sees
// a block generation newer than the one it rendered rebuilds the block
// from the model instead of patching it. It returns the new generation.
func (s *Store) Bump(noteID string, blockIDs ...string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if len(blockIDs) == 0 {
		s.noteGen[noteID] = s.gen
		return s.gen
	}
	for _, id := range blockIDs {
		s.blockGen[blockKey{noteID, id}] = s.gen
	}
	return s.gen
}

// Generation is the latest generation handed out.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// BlockGeneration is the generation a block must have been rendered at to
// be considered fresh.
func (s *Store) BlockGeneration(noteID, blockID string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g := s.noteGen[noteID]
	if bg := s.blockGen[blockKey{noteID, blockID}]; bg > g {
		g = bg
	}
	return g
}
