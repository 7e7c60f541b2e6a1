// Bedsim - scripted lateral rotation demo on the simulated bed
//
// Runs the control engine against the simulated actuator rig and walks
// it through a homing move, a lateral turn, a mid-movement emergency
// stop, and the manual recovery, printing events as they happen.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/carebot-oss/carebot/pkg/audit"
	"github.com/carebot-oss/carebot/pkg/bed"
	"github.com/carebot-oss/carebot/pkg/drive"
	"github.com/carebot-oss/carebot/pkg/engine"
	"github.com/carebot-oss/carebot/pkg/motion"
	"github.com/carebot-oss/carebot/pkg/safety"
)

var (
	headline = color.New(color.FgCyan, color.Bold).PrintfFunc()
	okf      = color.New(color.FgGreen).PrintfFunc()
	warnf    = color.New(color.FgYellow).PrintfFunc()
	critf    = color.New(color.FgRed, color.Bold).PrintfFunc()
	faintf   = color.New(color.Faint).PrintfFunc()
)

func main() {
	headline("🛏  CareBot Bed Simulator\n")
	headline("========================\n\n")

	rig := drive.NewSimRig()
	rig.SetPressures([bed.PressureChannels]float64{250, 250, 150, 150})

	monitor := safety.NewMonitor(rig, safety.Config{}, zap.NewNop())
	recent := audit.NewMemoryLog(0)

	eng := engine.New(rig, monitor, motion.NewPlanner(bed.DefaultCalibration()), recent, engine.Config{
		RotationInterval: -1, // manual requests only
		StepCount:        24,
		StepInterval:     50 * time.Millisecond,
		TickInterval:     50 * time.Millisecond,
		HomeOnStart:      true,
	}, zap.NewNop())

	// Handle Ctrl+C gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\n👋 Stopping engine...")
		eng.Stop()
		os.Exit(0)
	}()

	sub := eng.Subscribe(32)
	go func() {
		for ev := range sub.Events() {
			ts := ev.Timestamp.Format("15:04:05.000")
			switch ev.Level {
			case engine.LevelCritical:
				critf("%s ⛔ %s\n", ts, ev.Message)
			case engine.LevelWarning:
				warnf("%s ⚠️  %s\n", ts, ev.Message)
			default:
				okf("%s ✓ %s\n", ts, ev.Message)
			}
		}
	}()

	go eng.Run()
	defer eng.Stop()

	fmt.Println("Homing to supine...")
	waitFor(eng, func(st engine.Status) bool {
		return st.State == engine.StateIdle && st.CurrentPosition == bed.Supine
	})

	fmt.Println("\nTurning to left lateral...")
	if err := eng.RequestRotation(bed.LeftLateral, "demo"); err != nil {
		critf("request failed: %v\n", err)
		os.Exit(1)
	}
	waitFor(eng, func(st engine.Status) bool { return st.State == engine.StateIdle })
	printPosture(eng)

	fmt.Println("\nTurning to right lateral, pressing the stop mid-move...")
	if err := eng.RequestRotation(bed.RightLateral, "demo"); err != nil {
		critf("request failed: %v\n", err)
		os.Exit(1)
	}
	time.Sleep(300 * time.Millisecond)
	eng.TriggerEmergencyStop("demo pendant")
	waitFor(eng, func(st engine.Status) bool { return st.State == engine.StateEmergencyStopped })

	fmt.Println("\nTrying to rotate while stopped (should be refused)...")
	if err := eng.RequestRotation(bed.Supine, "demo"); err != nil {
		critf("refused: %v\n", err)
	}

	fmt.Println("\nCaregiver confirms the bed is clear, resuming...")
	if err := eng.ManualResume(); err != nil {
		critf("resume failed: %v\n", err)
		os.Exit(1)
	}
	waitFor(eng, func(st engine.Status) bool { return st.State == engine.StateIdle })

	fmt.Println("\nReturning to supine...")
	if err := eng.RequestRotation(bed.Supine, "demo"); err != nil {
		critf("request failed: %v\n", err)
		os.Exit(1)
	}
	waitFor(eng, func(st engine.Status) bool { return st.State == engine.StateIdle })
	printPosture(eng)

	st := eng.Status()
	headline("\nAttempt log\n")
	for _, rec := range recent.Recent(10) {
		line := fmt.Sprintf("  %s  %-13s %-9s steps %d/%d  %s",
			rec.Timestamp.Format("15:04:05"), rec.Position, rec.Outcome,
			rec.StepsCompleted, rec.StepsPlanned, rec.Detail)
		switch rec.Outcome {
		case audit.OutcomeCompleted:
			okf("%s\n", line)
		case audit.OutcomeRejected:
			warnf("%s\n", line)
		default:
			critf("%s\n", line)
		}
	}

	headline("\nRig journal (tail)\n")
	journal := rig.Journal()
	if len(journal) > 12 {
		journal = journal[len(journal)-12:]
	}
	for _, entry := range journal {
		faintf("  %s\n", entry)
	}

	fmt.Printf("\nDone: %d rotations this run.\n", st.TotalRotations)
}

// waitFor polls the engine until the snapshot satisfies the predicate.
func waitFor(eng *engine.Engine, pred func(engine.Status) bool) {
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if pred(eng.Status()) {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	critf("timed out waiting for engine state\n")
	os.Exit(1)
}

func printPosture(eng *engine.Engine) {
	st := eng.Status()
	fmt.Printf("Now %s, extents head %.1f/%.1f mm foot %.1f/%.1f mm\n",
		st.CurrentPosition,
		st.Extents[bed.HeadLeft], st.Extents[bed.HeadRight],
		st.Extents[bed.FootLeft], st.Extents[bed.FootRight])
}
