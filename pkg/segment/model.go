package segment

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jpfielding/ctlabels.go/pkg/labels"
	"github.com/jpfielding/ctlabels.go/pkg/morph"
	"github.com/jpfielding/ctlabels.go/pkg/volume"
)

// Multiple is the target of models predicting every label at once.
const Multiple = "multiple"

// Model is a folder of ensemble weights. Folders are laid out as
// {target}/{name}/*.p where target is a label name or "multiple".
type Model struct {
	Dir     string
	Name    string
	Target  string
	Weights []string
}

// Discover lists the weight files of a model folder, preferring *.p over *.pth.
func Discover(dir string) (Model, error) {
	dir = filepath.Clean(dir)
	m := Model{
		Dir:    dir,
		Name:   filepath.Base(dir),
		Target: strings.ToLower(filepath.Base(filepath.Dir(dir))),
	}
	for _, ext := range []string{"*.p", "*.pth"} {
		found, err := filepath.Glob(filepath.Join(dir, ext))
		if err != nil {
			return m, err
		}
		if len(found) > 0 {
			slices.Sort(found)
			m.Weights = found
			return m, nil
		}
	}
	return m, fmt.Errorf("%w in %s", ErrNoWeights, dir)
}

// Classes returns the class count the model must produce for set, after
// checking the target is usable.
func (m Model) Classes(set *labels.Set) (int, error) {
	if m.Target == Multiple {
		if set.Len() == 0 {
			return 0, fmt.Errorf("%w: no labels", ErrClassMismatch)
		}
		if err := set.CheckClasses(); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrClassMismatch, err)
		}
		return set.Len(), nil
	}
	if !set.Has(m.Target) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTarget, m.Target)
	}
	return 1, nil
}

// Distribute turns a result into label masks. A multi-class result fills
// every label from its class index, a single-class result fills target from
// class 0. The returned map is staged and meant to be swapped in whole.
func Distribute(res *Result, set *labels.Set, target string, removeOutliers bool) (map[string]*volume.Mask, error) {
	out := map[string]*volume.Mask{}
	take := func(name string, class int) {
		m := res.Mask(class)
		if removeOutliers {
			m = morph.RemoveOutliers(m)
		}
		out[name] = m
	}
	if target == Multiple {
		if res.Classes != set.Len() {
			return nil, fmt.Errorf("%w: model produced %d classes for %d labels", ErrClassMismatch, res.Classes, set.Len())
		}
		if err := set.CheckClasses(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrClassMismatch, err)
		}
		for _, l := range set.All() {
			take(l.Name, l.Class)
		}
		return out, nil
	}
	l, ok := set.Get(target)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, target)
	}
	if res.Classes < 1 {
		return nil, fmt.Errorf("%w: empty result", ErrClassMismatch)
	}
	take(l.Name, 0)
	return out, nil
}
