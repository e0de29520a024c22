// Package scc holds the source code control plugin contract: the return codes,
// status and capability bits, option flags and buffer sizes every provider
// library agrees on, plus the translation of return codes into host outcomes.
package scc

import "fmt"

// ReturnCode is the signed value every provider entry point returns.
// Zero is success, positive values are informational, negative values are errors.
type ReturnCode int32

// Informational codes.
const (
	OK                ReturnCode = 0
	AdvSupport        ReturnCode = 1
	OperationCanceled ReturnCode = 2
	ProjectCreated    ReturnCode = 3
	FileNotAffected   ReturnCode = 4
	ReloadFile        ReturnCode = 5
	FileDiffers       ReturnCode = 6
	ShareSubprojOK    ReturnCode = 7
)

// Error codes.
const (
	InitializeFailed      ReturnCode = -1
	UnknownProject        ReturnCode = -2
	CouldNotCreateProject ReturnCode = -3
	NotCheckedOut         ReturnCode = -4
	AlreadyCheckedOut     ReturnCode = -5
	FileIsLocked          ReturnCode = -6
	FileOutExclusive      ReturnCode = -7
	AccessFailure         ReturnCode = -8
	CheckinConflict       ReturnCode = -9
	FileAlreadyExists     ReturnCode = -10
	FileNotControlled     ReturnCode = -11
	FileIsCheckedOut      ReturnCode = -12
	NoSpecifiedVersion    ReturnCode = -13
	OpNotSupported        ReturnCode = -14
	NonSpecificError      ReturnCode = -15
	OpNotPerformed        ReturnCode = -16
	TypeNotSupported      ReturnCode = -17
	VerifyMerge           ReturnCode = -18
	FixMerge              ReturnCode = -19
	ShellFailure          ReturnCode = -20
	InvalidUser           ReturnCode = -21
	ProjectAlreadyOpen    ReturnCode = -22
	ProjSyntaxErr         ReturnCode = -23
	InvalidFilePath       ReturnCode = -24
	ProjNotOpen           ReturnCode = -25
	NotAuthorized         ReturnCode = -26
	FileSyntaxErr         ReturnCode = -27
	FileNotExist          ReturnCode = -28
	ConnectionFailure     ReturnCode = -29
	UnknownError          ReturnCode = -30
)

type codeInfo struct {
	name string
	text string
}

var codes = map[ReturnCode]codeInfo{
	OK:                    {"SCC_OK", "success"},
	AdvSupport:            {"SCC_I_ADV_SUPPORT", "advanced options supported"},
	OperationCanceled:     {"SCC_I_OPERATIONCANCELED", "operation canceled"},
	ProjectCreated:        {"SCC_I_PROJECTCREATED", "project created"},
	FileNotAffected:       {"SCC_I_FILENOTAFFECTED", "file not affected"},
	ReloadFile:            {"SCC_I_RELOADFILE", "file needs to be reloaded"},
	FileDiffers:           {"SCC_I_FILEDIFFERS", "file differs from the controlled version"},
	ShareSubprojOK:        {"SCC_I_SHARESUBPROJOK", "subproject shared"},
	InitializeFailed:      {"SCC_E_INITIALIZEFAILED", "provider failed to initialize"},
	UnknownProject:        {"SCC_E_UNKNOWNPROJECT", "unknown project"},
	CouldNotCreateProject: {"SCC_E_COULDNOTCREATEPROJECT", "could not create project"},
	NotCheckedOut:         {"SCC_E_NOTCHECKEDOUT", "file is not checked out"},
	AlreadyCheckedOut:     {"SCC_E_ALREADYCHECKEDOUT", "file is already checked out"},
	FileIsLocked:          {"SCC_E_FILEISLOCKED", "file is locked"},
	FileOutExclusive:      {"SCC_E_FILEOUTEXCLUSIVE", "file is checked out exclusively"},
	AccessFailure:         {"SCC_E_ACCESSFAILURE", "could not access the source control system"},
	CheckinConflict:       {"SCC_E_CHECKINCONFLICT", "check-in conflict"},
	FileAlreadyExists:     {"SCC_E_FILEALREADYEXISTS", "file already exists"},
	FileNotControlled:     {"SCC_E_FILENOTCONTROLLED", "file is not under source control"},
	FileIsCheckedOut:      {"SCC_E_FILEISCHECKEDOUT", "file is checked out"},
	NoSpecifiedVersion:    {"SCC_E_NOSPECIFIEDVERSION", "no specified version"},
	OpNotSupported:        {"SCC_E_OPNOTSUPPORTED", "operation not supported"},
	NonSpecificError:      {"SCC_E_NONSPECIFICERROR", "non-specific error"},
	OpNotPerformed:        {"SCC_E_OPNOTPERFORMED", "operation not performed"},
	TypeNotSupported:      {"SCC_E_TYPENOTSUPPORTED", "file type not supported"},
	VerifyMerge:           {"SCC_E_VERIFYMERGE", "merge needs verification"},
	FixMerge:              {"SCC_E_FIXMERGE", "merge needs fixing"},
	ShellFailure:          {"SCC_E_SHELLFAILURE", "shell failure"},
	InvalidUser:           {"SCC_E_INVALIDUSER", "invalid user"},
	ProjectAlreadyOpen:    {"SCC_E_PROJECTALREADYOPEN", "project already open"},
	ProjSyntaxErr:         {"SCC_E_PROJSYNTAXERR", "project syntax error"},
	InvalidFilePath:       {"SCC_E_INVALIDFILEPATH", "invalid file path"},
	ProjNotOpen:           {"SCC_E_PROJNOTOPEN", "project not open"},
	NotAuthorized:         {"SCC_E_NOTAUTHORIZED", "not authorized"},
	FileSyntaxErr:         {"SCC_E_FILESYNTAXERR", "file syntax error"},
	FileNotExist:          {"SCC_E_FILENOTEXIST", "file does not exist"},
	ConnectionFailure:     {"SCC_E_CONNECTIONFAILURE", "connection failure"},
	UnknownError:          {"SCC_E_UNKNOWNERROR", "unknown error"},
}

// IsSuccess reports whether the code is exactly OK.
func (c ReturnCode) IsSuccess() bool { return c == OK }

// IsError reports whether the code is in the error range.
func (c ReturnCode) IsError() bool { return c < 0 }

// IsInformational reports whether the code is in the informational range.
func (c ReturnCode) IsInformational() bool { return c > 0 }

func (c ReturnCode) String() string {
	if info, ok := codes[c]; ok {
		return info.name
	}
	if c < 0 {
		return fmt.Sprintf("SCC_E_%d", -int32(c))
	}
	return fmt.Sprintf("SCC_I_%d", int32(c))
}

// Text returns a human readable description of the code.
func (c ReturnCode) Text() string {
	if info, ok := codes[c]; ok {
		return info.text
	}
	return fmt.Sprintf("provider returned code %d", int32(c))
}
