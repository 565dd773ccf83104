// Package inst installs and removes packages in the idb format.
//
// A package is a descriptor file, <base>.idb, listing every filesystem entry,
// plus one or more archives, <base>.<name>, holding the file contents. Each
// descriptor entry belongs to a subsystem and may carry a machine
// constraint; callers pick entries with anchored subsystem patterns and a
// set of machine tags.
//
// # Quick Start
//
// List the files a package would install on an IP22 with Indy graphics:
//
//	pkg, err := inst.Open("dist/foo")
//	if err != nil {
//	    return err
//	}
//	defer pkg.Close()
//
//	files, err := pkg.Files([]string{"foo.sw.*"}, inst.Tags{"CPUBOARD": "IP22", "GFXBOARD": "NEWPORT"})
//
// Install them below a target root:
//
//	err = pkg.Install(ctx, []string{"foo.sw.*"}, "/mnt/target", tags)
//
// # Machine Constraints
//
// Constraints use either the legacy implicit syntax, where repeated values
// for one tag are alternatives and a repeated tag after others starts a new
// alternative, or explicit && and || operators:
//
//	CPUBOARD=IP22 CPUBOARD=IP24
//	CPUBOARD=IP22 && GFXBOARD!=NEWPORT || CPUBOARD=IP32
//
// A constraint naming a tag that was not supplied does not match; [Package.Check]
// reports such tags together with the values the descriptor uses for them.
//
// # Hooks
//
// Descriptor entries may carry preop, postop, exitop and removeop shell
// commands. They are never executed; [WithHookOutput] prints them instead.
package inst
