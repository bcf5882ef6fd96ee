package kneeboard

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kneeboard.dev/core/apievent"
)

func TestHandleAPIEventRemoteUserAction(t *testing.T) {
	s := newTestState(3)
	ctx := context.Background()
	tv := s.ActiveView().TabView()
	first := tv.CurrentPageID()

	err := s.HandleAPIEvent(ctx, apievent.Event{Name: "RemoteUserAction", Value: "NextPage"})
	require.NoError(t, err)
	assert.NotEqual(t, first, tv.CurrentPageID())
}

func TestHandleAPIEventSetTabByName(t *testing.T) {
	s := newTestState(2, 3)
	ctx := context.Background()

	err := s.HandleAPIEvent(ctx, apievent.Event{Name: "SetTabByName", Value: `{"name":"Tab B","pageNumber":2}`})
	require.NoError(t, err)

	tabB := s.Tabs()[1]
	pages := tabB.Source.GetPageIDs()
	assert.Equal(t, pages[1], s.ActiveView().TabView().CurrentPageID())
}

func TestHandleAPIEventSetTabByIndex(t *testing.T) {
	s := newTestState(2, 3)
	ctx := context.Background()
	err := s.HandleAPIEvent(ctx, apievent.Event{Name: "SetTabByIndex", Value: `{"index":1}`})
	require.NoError(t, err)
	tabB := s.Tabs()[1]
	assert.Contains(t, tabB.Source.GetPageIDs(), s.ActiveView().TabView().CurrentPageID())
}

func TestHandleAPIEventSetTabByID(t *testing.T) {
	s := newTestState(2, 3)
	ctx := context.Background()
	id := s.Tabs()[1].ID
	err := s.HandleAPIEvent(ctx, apievent.Event{Name: "SetTabByID", Value: fmt.Sprintf(`{"id":"%d"}`, id)})
	require.NoError(t, err)
	assert.Contains(t, s.Tabs()[1].Source.GetPageIDs(), s.ActiveView().TabView().CurrentPageID())
}

func TestHandleAPIEventSetBrightness(t *testing.T) {
	s := newTestState(1)
	ctx := context.Background()
	err := s.HandleAPIEvent(ctx, apievent.Event{Name: "SetBrightness", Value: `{"brightness":0.25,"mode":"Absolute"}`})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, s.Brightness(), 1e-9)
}

func TestHandleAPIEventUnknown(t *testing.T) {
	s := newTestState(1)
	ctx := context.Background()
	err := s.HandleAPIEvent(ctx, apievent.Event{Name: "SomethingElse", Value: ""})
	assert.ErrorIs(t, err, ErrUnknownAPIEvent)
}
