package dnd

import "slices"

// Args is the input of one collision evaluation.
type Args struct {
	ActiveCardID  string
	ActiveRect    Rect
	HasActiveRect bool
	Pointer       *Point
	Droppables    []Droppable
}

// Detector is a hit-testing primitive returning ranked candidates.
type Detector func(Args) []Collision

// Strategy is one stage of collision resolution. An empty result means
// the stage found nothing and the next stage should run.
type Strategy func(Args) []Collision

// Resolver runs strategies in order and returns the first non-empty result.
type Resolver struct {
	strategies []Strategy
}

// NewResolver constructs a resolver from an ordered list of strategies.
func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: slices.Clone(strategies)}
}

// DefaultResolver prefers the card under the pointer, then cards overlapping
// the dragged card, and finally the closest card by center distance.
func DefaultResolver() *Resolver {
	return NewResolver(
		TargetStrategy(PointerWithin),
		TargetStrategy(RectIntersection),
		ClosestCardStrategy,
	)
}

// Resolve returns the ranked collisions of the first strategy that found any.
func (r *Resolver) Resolve(args Args) []Collision {
	for _, strategy := range r.strategies {
		if out := strategy(args); len(out) > 0 {
			return out
		}
	}
	return nil
}

// First returns the resolved target, if any.
func (r *Resolver) First(args Args) (Droppable, bool) {
	out := r.Resolve(args)
	if len(out) == 0 {
		return Droppable{}, false
	}
	return out[0].Droppable, true
}

// PointerWithin returns droppables whose rect contains the pointer, ranked by
// mean distance from the pointer to the rect corners.
func PointerWithin(args Args) []Collision {
	if args.Pointer == nil {
		return nil
	}
	p := *args.Pointer
	out := make([]Collision, 0, 4)
	for _, d := range args.Droppables {
		if !d.HasRect || !d.Rect.Contains(p) {
			continue
		}
		out = append(out, Collision{Droppable: d, Value: meanCornerDistance(d.Rect, p)})
	}
	sortAscending(out)
	return out
}

// RectIntersection returns droppables overlapping the active rect, ranked by
// intersection ratio, largest first.
func RectIntersection(args Args) []Collision {
	if !args.HasActiveRect || args.ActiveRect.Empty() {
		return nil
	}
	active := args.ActiveRect
	out := make([]Collision, 0, 4)
	for _, d := range args.Droppables {
		if !d.HasRect {
			continue
		}
		overlap := active.Intersection(d.Rect)
		if overlap <= 0 {
			continue
		}
		union := active.Width*active.Height + d.Rect.Width*d.Rect.Height - overlap
		out = append(out, Collision{Droppable: d, Value: overlap / union})
	}
	slices.SortStableFunc(out, func(a, b Collision) int {
		switch {
		case a.Value > b.Value:
			return -1
		case a.Value < b.Value:
			return 1
		default:
			return 0
		}
	})
	return out
}

// ClosestCenter ranks every measured droppable by the distance between its
// center and the active rect center, or the pointer when no rect is known.
func ClosestCenter(args Args) []Collision {
	var origin Point
	switch {
	case args.HasActiveRect:
		origin = args.ActiveRect.Center()
	case args.Pointer != nil:
		origin = *args.Pointer
	default:
		return nil
	}
	out := make([]Collision, 0, len(args.Droppables))
	for _, d := range args.Droppables {
		if !d.HasRect {
			continue
		}
		out = append(out, Collision{Droppable: d, Value: d.Rect.Center().Distance(origin)})
	}
	sortAscending(out)
	return out
}

// TargetStrategy picks the first hit of detect that is not the dragged card
// and refines it: over a card it keeps only card hits, over a column it snaps
// to the nearest card of that column, or the column itself when empty.
func TargetStrategy(detect Detector) Strategy {
	return func(args Args) []Collision {
		hits := detect(args)
		target, ok := firstOther(hits, args.ActiveCardID)
		if !ok {
			return nil
		}
		switch target.Droppable.Kind {
		case KindCard:
			return cardsOnly(hits, args.ActiveCardID)
		case KindColumn:
			if nearest := nearestCardsInColumn(args, target.Droppable.ColumnID); len(nearest) > 0 {
				return nearest
			}
			return []Collision{target}
		default:
			return nil
		}
	}
}

// ClosestCardStrategy is the last resort: closest center, cards first,
// never the dragged card.
func ClosestCardStrategy(args Args) []Collision {
	ranked := ClosestCenter(args)
	if cards := cardsOnly(ranked, args.ActiveCardID); len(cards) > 0 {
		return cards
	}
	return without(ranked, args.ActiveCardID)
}

func nearestCardsInColumn(args Args, columnID string) []Collision {
	if args.Pointer == nil {
		return nil
	}
	p := *args.Pointer
	out := make([]Collision, 0, 4)
	for _, d := range args.Droppables {
		if d.Kind != KindCard || d.ColumnID != columnID || d.CardID == args.ActiveCardID || !d.HasRect {
			continue
		}
		out = append(out, Collision{Droppable: d, Value: d.Rect.Center().Distance(p)})
	}
	sortAscending(out)
	return out
}

func firstOther(hits []Collision, activeCardID string) (Collision, bool) {
	for _, hit := range hits {
		if !hit.isCard(activeCardID) {
			return hit, true
		}
	}
	return Collision{}, false
}

func cardsOnly(hits []Collision, activeCardID string) []Collision {
	out := make([]Collision, 0, len(hits))
	for _, hit := range hits {
		if hit.Droppable.Kind == KindCard && hit.Droppable.CardID != activeCardID {
			out = append(out, hit)
		}
	}
	return out
}

func without(hits []Collision, activeCardID string) []Collision {
	out := make([]Collision, 0, len(hits))
	for _, hit := range hits {
		if !hit.isCard(activeCardID) {
			out = append(out, hit)
		}
	}
	return out
}

func meanCornerDistance(r Rect, p Point) float64 {
	corners := [4]Point{
		{X: r.Left, Y: r.Top},
		{X: r.Right(), Y: r.Top},
		{X: r.Left, Y: r.Bottom()},
		{X: r.Right(), Y: r.Bottom()},
	}
	total := 0.0
	for _, c := range corners {
		total += c.Distance(p)
	}
	return total / float64(len(corners))
}

func sortAscending(out []Collision) {
	slices.SortStableFunc(out, func(a, b Collision) int {
		switch {
		case a.Value < b.Value:
			return -1
		case a.Value > b.Value:
			return 1
		default:
			return 0
		}
	})
}

