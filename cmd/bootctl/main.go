// Command bootctl is the host-side operator tool for the simulated
// flash image: it drives the same status/image/boot logic the real
// bootloader runs, against a file on disk instead of MCU flash, for
// manual QA and demonstration.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"openenterprise/failsafeboot/boot"
	"openenterprise/failsafeboot/internal/bufpool"
	"openenterprise/failsafeboot/internal/flash"
	"openenterprise/failsafeboot/internal/memmap"
	"openenterprise/failsafeboot/internal/platform"
	"openenterprise/failsafeboot/internal/status"
	"openenterprise/failsafeboot/internal/trampoline"
	"openenterprise/failsafeboot/stage"
	"openenterprise/failsafeboot/version"
)

const defaultImagePath = "flash.img"

func addrSpace(l memmap.Layout) uint32 {
	max := l.Backup.VectTableBase + l.Backup.VectSize
	if v := l.InfoAddr + l.InfoSegSize; v > max {
		max = v
	}
	return max
}

func confirm(prompt string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		// Non-interactive invocation (scripts, CI): proceed without
		// prompting rather than hang waiting on a TTY that isn't there.
		return true
	}
	fmt.Printf("%s [y/N] ", prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return line == "y\n" || line == "Y\n"
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "bootctl: "+format+"\n", args...)
	os.Exit(1)
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: bootctl [-image path] <command> [args]

commands:
  init                 erase the simulated image to a fresh, all-erased state
  status               print the current image status
  stage <app> <vect>   write a candidate image into DOWNLOAD and set status DOWNLOAD
  validate             set status VALIDATED
  boot                 run one boot decision pass
  dump <region>        print region contents (program|download|backup|info)
  version              print bootctl's build marker
`)
}

func main() {
	imagePath := flag.String("image", defaultImagePath, "path to the simulated flash image file")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	if args[0] == "version" {
		cmdVersion()
		return
	}

	layout := memmap.Default
	if err := layout.Validate(); err != nil {
		fatalf("layout: %v", err)
	}

	sim, closeImage, err := flash.OpenMappedSim(*imagePath, addrSpace(layout), layout.SegmentSize, layout.BankSize)
	if err != nil {
		fatalf("open image %s: %v", *imagePath, err)
	}
	defer closeImage()

	pool := bufpool.New(int(layout.InfoSegSize))
	store := status.NewStore(sim, layout, pool)

	switch args[0] {
	case "init":
		cmdInit(sim, layout, args[1:])
	case "status":
		cmdStatus(store)
	case "stage":
		cmdStage(sim, layout, store, args[1:])
	case "validate":
		cmdValidate(store)
	case "boot":
		cmdBoot(sim, layout, store)
	case "dump":
		cmdDump(sim, layout, args[1:])
	default:
		usage()
		os.Exit(1)
	}
}

func cmdInit(sim *flash.Sim, l memmap.Layout, _ []string) {
	if !confirm("this will erase the simulated flash image, continue?") {
		fmt.Println("aborted")
		return
	}
	for i := uint32(0); i < l.SegmentCount(l.Program); i++ {
		sim.Erase(l.Program.Base+i*l.SegmentSize, flash.SegmentErase)
	}
	sim.Erase(l.Download.Base, flash.BankErase)
	sim.Erase(l.Backup.Base, flash.BankErase)
	sim.Erase(l.InfoAddr, flash.SegmentErase)
	fmt.Println("initialized")
}

func cmdVersion() {
	v := version.Version
	if v == "" {
		v = "(dev)"
	}
	fmt.Printf("bootctl %s (%s)\n", v, version.BuildMarker)
}

func cmdStatus(store *status.Store) {
	fmt.Println(store.Read())
}

func cmdStage(sim *flash.Sim, l memmap.Layout, store *status.Store, args []string) {
	if len(args) != 2 {
		fatalf("stage requires <app-file> <vect-file>")
	}
	body, err := os.ReadFile(args[0])
	if err != nil {
		fatalf("read app file: %v", err)
	}
	vect, err := os.ReadFile(args[1])
	if err != nil {
		fatalf("read vector file: %v", err)
	}
	if err := stage.Stage(sim, l, store, stage.Image{Body: body, VectorTable: vect}); err != nil {
		fatalf("stage: %v", err)
	}
	fmt.Println("staged")
}

func cmdValidate(store *status.Store) {
	if err := stage.Validate(store); err != nil {
		fatalf("validate: %v", err)
	}
	fmt.Println("validated")
}

func cmdBoot(sim *flash.Sim, l memmap.Layout, store *status.Store) {
	tramp := trampoline.NewBuffer(int(l.ImageTotalSize))
	fake := platform.NewFake()
	deps := boot.Deps{
		Controller: sim,
		Layout:     l,
		Status:     store,
		Trampoline: tramp,
		Platform:   fake,
		Checkpoint: func(name string) { fmt.Println("checkpoint:", name) },
	}

	out := boot.Run(deps)
	fmt.Printf("status: %s -> %s\n", out.StatusOnEntry, out.StatusOnExit)
	if out.Reset {
		fmt.Println("MCU reset issued")
		return
	}
	fmt.Printf("application entry: %#04x\n", out.AppEntry)
}

func cmdDump(sim *flash.Sim, l memmap.Layout, args []string) {
	if len(args) != 1 {
		fatalf("dump requires <region>")
	}

	var r memmap.Region
	switch args[0] {
	case "program":
		r = l.Program
	case "download":
		r = l.Download
	case "backup":
		r = l.Backup
	case "info":
		fmt.Printf("% x\n", sim.Bytes(l.InfoAddr, l.InfoSegSize))
		return
	default:
		fatalf("unknown region %q", args[0])
		return
	}

	fmt.Printf("body:   % x\n", sim.Bytes(r.Base, r.AppSize))
	fmt.Printf("vector: % x\n", sim.Bytes(r.VectTableBase, r.VectSize))
}
