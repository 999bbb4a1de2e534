package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/scarakin/internal/feed"
	"github.com/san-kum/scarakin/internal/kin"
)

func chainAndAngles(cmd *cobra.Command, args []string) (*kin.Chain, []float64, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	chain, err := cfg.Chain()
	if err != nil {
		return nil, nil, err
	}
	angles, err := parseFloats(args)
	if err != nil {
		return nil, nil, err
	}
	if len(args) == 0 {
		angles = make([]float64, chain.JointCount())
	}
	return chain, angles, nil
}

func runFK(cmd *cobra.Command, args []string) error {
	chain, angles, err := chainAndAngles(cmd, args)
	if err != nil {
		return err
	}
	pose, err := kin.EndPose(chain, angles)
	if err != nil {
		return err
	}
	q, err := pose.Quaternion()
	if err != nil {
		return err
	}
	links, err := chain.LinkTransforms(angles)
	if err != nil {
		return err
	}

	p := pose.Translation
	fmt.Printf("%s -> %s\n", chain.BaseLink(), chain.EndLink())
	fmt.Printf("translation: (%.6f, %.6f, %.6f)\n", p.X, p.Y, p.Z)
	fmt.Printf("quaternion:  (w=%.6f, x=%.6f, y=%.6f, z=%.6f)\n", q.Real, q.Imag, q.Jmag, q.Kmag)
	fmt.Printf("rotation:\n%s\n\n", indentMatrix(pose.Rotation))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LINK\tX\tY\tZ")
	for i, name := range chain.Links() {
		t := links[i].Translation()
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\n", name, t.X, t.Y, t.Z)
	}
	return w.Flush()
}

// indentMatrix renders m with every row indented by two spaces.
func indentMatrix(m mat.Matrix) string {
	return fmt.Sprintf("  %v", mat.Formatted(m, mat.Prefix("  "), mat.Squeeze()))
}

func runJacobian(cmd *cobra.Command, args []string) error {
	chain, angles, err := chainAndAngles(cmd, args)
	if err != nil {
		return err
	}
	jac, err := kin.ComputeJacobian(chain, angles)
	if err != nil {
		return err
	}
	fmt.Printf("joints: %v\n", chain.JointNames())
	fmt.Printf("%v\n", mat.Formatted(jac, mat.Squeeze()))
	return nil
}

func runObserve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	est, err := cfg.Estimator()
	if err != nil {
		return err
	}
	angles, err := parseFloats(args)
	if err != nil {
		return err
	}
	n := est.Chain().JointCount()
	if len(args) == 0 {
		angles = make([]float64, n)
	}
	vel := velocities
	if len(vel) == 0 && (cfg.Task.JointVelocities || cfg.Task.PointVelocities) {
		vel = make([]float64, n)
	}

	obs, err := est.Estimate(feed.Snapshot{Names: est.JointOrder(), Positions: angles, Velocities: vel})
	if err != nil {
		return err
	}

	layout := est.Layout()
	fmt.Printf("state dim: %d (joints %d, points %d)\n", layout.Dim(), layout.JointCount, layout.PointCount)
	fmt.Printf("distance:  %.6f\n\n", obs.Distance())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IDX\tBLOCK\tVALUE")
	jd := layout.JointDim()
	for i, v := range obs.State {
		block := "point error"
		switch {
		case i < n:
			block = "position " + est.JointOrder()[i]
		case i < jd:
			block = "velocity " + est.JointOrder()[i-n]
		case i >= jd+3*layout.PointCount:
			block = "point velocity"
		}
		fmt.Fprintf(w, "%d\t%s\t%+.6f\n", i, block, v)
	}
	return w.Flush()
}
