package game

// ResolvePush separates overlapping pushboxes along x. Each fighter moves by
// half the overlap rounded up, then both are clamped to the stage. Skipped
// while a cinematic owns the fighters.
func ResolvePush(a, b *Fighter, cinematicActive bool) {
	if cinematicActive {
		return
	}
	pa, pb := a.Pushbox(), b.Pushbox()
	if !pa.Intersects(pb) {
		return
	}
	overlap := min(pa.Right()-pb.X, pb.Right()-pa.X)
	if overlap <= 0 {
		return
	}
	push := halfPush(overlap)
	if a.X < b.X || (a.X == b.X && a.Side == SideP1) {
		a.X -= push
		b.X += push
	} else {
		a.X += push
		b.X -= push
	}
	a.ClampToStage()
	b.ClampToStage()
}

// halfPush mirrors integer (overlap+1)/2 for whole-pixel overlaps.
func halfPush(overlap float64) float64 {
	n := int(overlap + 0.999999)
	return float64((n + 1) / 2)
}

// CheckHit returns the contact point of the first overlapping hit/hurt pair.
// The point is the center of the intersection, or the hitbox center when the
// intersection is degenerate. It does not mutate either fighter.
func CheckHit(attacker, defender *Fighter) (Point, bool) {
	hits := attacker.Hitboxes()
	if len(hits) == 0 {
		return Point{}, false
	}
	hurts := defender.Hurtboxes()
	for _, hit := range hits {
		for _, hurt := range hurts {
			if !hit.Intersects(hurt) {
				continue
			}
			clip := hit.Clip(hurt)
			if clip.Empty() {
				return hit.Center(), true
			}
			return clip.Center(), true
		}
	}
	return Point{}, false
}
