package scc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate_PartitionsByRange(t *testing.T) {
	a := assert.New(t)

	a.Equal(Success, Translate(OK))
	a.Equal(Status{Kind: KindInformational, Code: FileDiffers}, Translate(FileDiffers))
	a.Equal(Status{Kind: KindInformational, Code: ReloadFile}, Translate(ReloadFile))
	a.Equal(Status{Kind: KindError, Code: NonSpecificError}, Translate(NonSpecificError))
	a.Equal(Status{Kind: KindError, Code: ReturnCode(-99)}, Translate(ReturnCode(-99)))
}

func TestTranslate_OperationCanceledIsNotAnError(t *testing.T) {
	a := assert.New(t)

	// when
	st := Translate(OperationCanceled)

	// then
	a.True(st.IsCanceled())
	a.NoError(st.Err("SccGetProjPath", ""))
}

func TestStatusErr_CarriesCodeAndDetail(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	st := Translate(CheckinConflict)

	// when
	err := errors.Wrap(st.Err("SccCheckin", "file was changed by bob"), "checkin")

	// then
	r.Error(err)
	code, ok := CodeOf(err)
	a.True(ok)
	a.Equal(CheckinConflict, code)
	a.Contains(err.Error(), "SccCheckin")
	a.Contains(err.Error(), "file was changed by bob")
	a.Contains(err.Error(), "SCC_E_CHECKINCONFLICT")
}

func TestCodeOf_HostError(t *testing.T) {
	_, ok := CodeOf(ErrMissingFiles)
	assert.False(t, ok)
}

func TestReturnCode_StringUnknown(t *testing.T) {
	a := assert.New(t)

	a.Equal("SCC_E_99", ReturnCode(-99).String())
	a.Equal("SCC_I_42", ReturnCode(42).String())
	a.Equal("SCC_OK", OK.String())
}

func TestCapability_Names(t *testing.T) {
	a := assert.New(t)

	mask := CapDiff | CapHistory | CapQueryInfo
	a.Equal([]string{"diff", "history", "queryinfo"}, mask.Names())
	a.Equal("none", Capability(0).String())
	a.True(mask.Has(CapDiff | CapHistory))
	a.False(mask.Has(CapRemove))
}

func TestFileStatus_String(t *testing.T) {
	a := assert.New(t)

	a.Equal("controlled|checkedout", (StatusControlled | StatusCheckedOut).String())
	a.Equal("notcontrolled", StatusNotControlled.String())
	a.Equal("nohostproject", StatusNoHostProject.String())
}

func TestOpenSilentExisting_ClearsCreate(t *testing.T) {
	a := assert.New(t)

	a.Equal(OpenSilent, OpenSilentExisting)
	a.Zero(OpenSilentExisting & OpenCreateIfNew)
}

func TestCheckLen(t *testing.T) {
	a := assert.New(t)

	a.NoError(CheckLen("user", "alice", UserLen))
	err := CheckLen("user", "a-very-long-user-name-that-does-not-fit", UserLen)
	a.ErrorIs(err, ErrValueTooLong)
}

func TestProviderError_IsMatchesCode(t *testing.T) {
	a := assert.New(t)

	// given
	err := errors.Wrap(&ProviderError{Op: "SccCheckin", Code: ProjNotOpen}, "checkin")

	// then
	a.ErrorIs(err, RC(ProjNotOpen))
	a.ErrorIs(err, &ProviderError{Op: "SccCheckin", Code: ProjNotOpen})
	a.NotErrorIs(err, &ProviderError{Op: "SccGet", Code: ProjNotOpen})
	a.NotErrorIs(err, RC(UnknownProject))
}
