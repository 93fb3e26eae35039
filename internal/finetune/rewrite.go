// Package finetune prepares a fine-tuning run: it rewrites the run
// configuration into the shape the generator and trainer expect, writes the
// derived artifacts, optionally preloads movies and drives the trainer.
package finetune

import (
	"fmt"
	"time"

	"github.com/imishinist/finetune-cli/internal/models"
)

// RunUIDLayout formats the default run_uid.
const RunUIDLayout = "2006_01_02_15_04"

// ApplyDefaults fills the keys the argument schema gives defaults for.
// Present keys are never overwritten. Sections that are missing are left
// missing so that Rewrite reports them.
func ApplyDefaults(cfg models.RunConfig, now time.Time) {
	top := models.Params(cfg)
	top.SetDefault(models.KeyRunUID, now.Format(RunUIDLayout))
	top.SetDefault(models.KeyOutputFullArgs, false)

	if ft, err := cfg.Finetuning(); err == nil {
		ft.SetDefault("model_string", "")
		ft.SetDefault("multi_gpus", false)
		ft.SetDefault("cache_data", false)
		ft.SetDefault("steps_per_epoch", 100)
		ft.SetDefault("nb_times_through_data", 1)
		ft.SetDefault("name", "mean_interpolation")
	}
	if gen, err := cfg.Generator(); err == nil {
		gen.SetDefault("name", "MovieJSONGenerator")
		gen.SetDefault("batch_size", 5)
	}
	if gen, err := cfg.TestGenerator(); err == nil {
		gen.SetDefault("name", "MovieJSONGenerator")
		gen.SetDefault("batch_size", 5)
	}
}

// Rewrite converts cfg in place to the legacy parameter-tracking shape.
func Rewrite(cfg models.RunConfig) error {
	uid, err := cfg.RunUID()
	if err != nil {
		return err
	}
	ft, err := cfg.Finetuning()
	if err != nil {
		return err
	}
	gen, err := cfg.Generator()
	if err != nil {
		return err
	}
	testGen, err := cfg.TestGenerator()
	if err != nil {
		return err
	}

	modelString, err := ft.String("model_string")
	if err != nil {
		return fmt.Errorf("%s: %w", models.KeyFinetuningParams, err)
	}
	if modelString == "" {
		loss, err := ft.Lookup("loss")
		if err != nil {
			return fmt.Errorf("%s: %w", models.KeyFinetuningParams, err)
		}
		ft["model_string"] = loss
	}

	ft["run_uid"] = uid

	multiGPUs, err := ft.Bool("multi_gpus")
	if err != nil {
		return fmt.Errorf("%s: %w", models.KeyFinetuningParams, err)
	}
	ft["nb_gpus"] = 0
	if multiGPUs {
		ft["nb_gpus"] = 2
	}

	// train_path is the name the generators read
	for _, s := range []struct {
		name   string
		params models.Params
	}{
		{models.KeyGeneratorParams, gen},
		{models.KeyTestGeneratorParams, testGen},
	} {
		dataPath, err := s.params.Lookup("data_path")
		if err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		s.params["train_path"] = dataPath
	}

	batchSize, err := gen.Lookup("batch_size")
	if err != nil {
		return fmt.Errorf("%s: %w", models.KeyGeneratorParams, err)
	}
	ft["batch_size"] = batchSize

	gen["type"] = models.TypeGenerator
	testGen["type"] = models.TypeGenerator
	ft["type"] = models.TypeTrainer

	return nil
}
