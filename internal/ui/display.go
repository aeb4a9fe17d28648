package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"cusweep/internal/cumask"
	"cusweep/internal/sweep"
	"cusweep/internal/topology"
)

func PrintTopology(topo *topology.GPUTopology) {
	if topo == nil {
		fmt.Println(errorBoxStyle.Render("GPU topology unavailable"))
		return
	}

	var b strings.Builder

	title := titleStyle.Render("GPU Compute Unit Topology")
	b.WriteString(title)
	b.WriteString("\n\n")

	var info strings.Builder
	info.WriteString(fmt.Sprintf("  %s %d  %s    %s %d    %s %d\n",
		deviceStyle.Render("Device"), topo.Device,
		highlightStyle.Render(topo.Name),
		gpcStyle.Render("GPCs:"), topo.GPCCount(),
		unitStyle.Render("TPCs:"), topo.TotalTPCs()))
	info.WriteString("\n")

	for i, gpc := range topo.GPCs {
		prefix := "├─"
		if i == len(topo.GPCs)-1 {
			prefix = "└─"
		}
		info.WriteString(fmt.Sprintf("     %s %s %d  ", prefix, gpcStyle.Render("GPC"), gpc.ID))
		info.WriteString(maskStyle.Render(fmt.Sprintf("%#016x", gpc.TPCMask)))
		info.WriteString(dimStyle.Render(fmt.Sprintf("  (%d TPCs: ", gpc.TPCCount())))
		info.WriteString(unitStyle.Render(cumask.FormatBits(gpc.TPCMask)))
		info.WriteString(dimStyle.Render(")"))
		info.WriteString("\n")
	}

	fmt.Println(boxStyle.Render(b.String() + info.String()))
}

func PrintStep(step sweep.Step) {
	fmt.Printf("%s %s %s %s\n",
		subtitleStyle.Render(fmt.Sprintf("[%d/%d]", step.Index, step.Total)),
		fmt.Sprintf("Testing %d active TPCs with CU mask", step.ActiveUnits),
		maskStyle.Render(step.Mask.HexString()),
		dimStyle.Render("(enabled: "+cumask.FormatBits(step.Mask.EnabledBits())+")"))
}

func PrintDryRun(step sweep.Step) {
	payload, err := json.MarshalIndent(step.Config, "", "  ")
	if err != nil {
		PrintError(err)
		return
	}
	content := fmt.Sprintf("DRY RUN - Would deliver to runner stdin (step %d/%d):\n\n%s",
		step.Index, step.Total, string(payload))
	fmt.Println(boxStyle.Render(content))
}

func PrintSweepDone(req *sweep.Request) {
	content := fmt.Sprintf("✓ Sweep complete: %d steps on device %d (%s)\n\n  Tested %d through %d active TPCs",
		req.Steps(), req.Device, req.Mode, req.StartCount+1, req.TotalCount)
	fmt.Println()
	fmt.Println(successBoxStyle.Render(content))
	fmt.Println()
}

func PrintError(err error) {
	content := fmt.Sprintf("✗ Error: %v", err)
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, errorBoxStyle.Render(content))
	fmt.Fprintln(os.Stderr)
}
