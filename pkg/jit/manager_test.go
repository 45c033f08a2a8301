package jit

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestManager_DeclareThenLookupFindsDeclarationWithoutBody(t *testing.T) {
	m := NewManager("test", discardLogger())
	m.DeclareFunction("foo", 2)

	fn, hasBody, found := m.Lookup("foo")
	require.True(t, found)
	assert.False(t, hasBody)
	assert.False(t, fn.IsNil())

	arity, ok := m.Arity("foo")
	require.True(t, ok)
	assert.Equal(t, 2, arity)
}

func TestManager_LookupMissingNameNotFound(t *testing.T) {
	m := NewManager("test", discardLogger())
	_, _, found := m.Lookup("nope")
	assert.False(t, found)
}

func TestManager_MarkBodyMakesLookupReportHasBody(t *testing.T) {
	m := NewManager("test", discardLogger())
	m.DeclareFunction("foo", 1)
	m.MarkBody("foo")

	_, hasBody, found := m.Lookup("foo")
	require.True(t, found)
	assert.True(t, hasBody)
}

func TestManager_PromoteSynthesizesDeclarationForClosedModuleBody(t *testing.T) {
	m := NewManager("test", discardLogger())
	m.DeclareFunction("square", 1)
	m.MarkBody("square")
	m.Promote()

	fn, hasBody, found := m.Lookup("square")
	require.True(t, found)
	assert.True(t, hasBody)
	assert.False(t, fn.IsNil())

	arity, ok := m.Arity("square")
	require.True(t, ok)
	assert.Equal(t, 1, arity)
}

func TestManager_CrossModuleBodyConflictPanics(t *testing.T) {
	m := NewManager("test", discardLogger())
	m.DeclareFunction("dup", 0)
	m.MarkBody("dup")
	m.Promote()

	m.DeclareFunction("dup", 0)
	m.MarkBody("dup")

	assert.Panics(t, func() {
		m.Lookup("dup")
	})
}
