package suite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
)

// run performs the step against page.
func (st Step) run(ctx context.Context, page Page, rc RunContext) error {
	switch {
	case st.Navigate != "":
		return page.Navigate(ctx, rc.URL(st.Navigate))

	case st.WaitVisible != "":
		return page.WaitVisible(ctx, st.WaitVisible)

	case st.Click != "":
		return page.Click(ctx, st.Click)

	case st.Input != nil:
		return page.Input(ctx, st.Input.Selector, st.Input.Value)

	case st.Text != nil:
		got, err := page.Text(ctx, st.Text.Selector)
		if err != nil {
			return err
		}
		if st.Text.Equals != nil && got != *st.Text.Equals {
			return fmt.Errorf("text of %q: got %q, want %q", st.Text.Selector, got, *st.Text.Equals)
		}
		if st.Text.Contains != "" && !strings.Contains(got, st.Text.Contains) {
			return fmt.Errorf("text of %q: %q does not contain %q", st.Text.Selector, got, st.Text.Contains)
		}
		return nil

	case st.Eval != "":
		got, err := page.Eval(ctx, st.Eval)
		if err != nil {
			return err
		}
		if st.Expect == nil {
			return nil
		}
		return st.checkExpect(got)

	case st.Sleep > 0:
		t := time.NewTimer(time.Duration(st.Sleep))
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("step has no action")
}

func (st Step) checkExpect(got any) error {
	var want any
	if err := st.Expect.Decode(&want); err != nil {
		return fmt.Errorf("decode expect: %w", err)
	}
	want, err := normalize(want)
	if err != nil {
		return fmt.Errorf("expect: %w", err)
	}
	got, err = normalize(got)
	if err != nil {
		return fmt.Errorf("eval result: %w", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		return fmt.Errorf("eval result mismatch (-want +got):\n%s", diff)
	}
	return nil
}

// normalize maps v onto the JSON data model so YAML integers and
// browser-reported floats compare equal.
func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
