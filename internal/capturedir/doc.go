// Package capturedir owns the persistent capture directory used in disk mode.
//
// A Manager holds at most one active Directory. The directory is re-validated
// before each write and only replaced after a failed re-validation or an
// explicit Reselect. Directories are opened through os.Root so frame names can
// never escape the chosen folder, and each one carries an advisory flock so two
// sessions never write into the same folder.
//
// Failures are tagged with the services sentinels: ErrDirectoryUnavailable
// when no picker exists, ErrPermissionDenied when access is declined or the
// folder is locked, and ErrSelectionAborted when the user cancels.
package capturedir
