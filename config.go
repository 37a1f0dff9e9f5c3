package runtime

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// LLMConfig is the llm.* surface of §6.4.
type LLMConfig struct {
	Mode       string // hosted | self_hosted
	EndpointURL string
	APIKey      string
	ModelName   string
	TimeoutS    int
}

// EmbeddingsConfig is the embeddings.* surface of §6.4.
type EmbeddingsConfig struct {
	EndpointURL string
	ModelName   string
	Dim         int
}

// RetrieverConfig is the retriever.* surface of §6.4.
type RetrieverConfig struct {
	IndexPath        string
	MetadataPath     string
	KTeaching        int
	KTroubleshooting int
}

// SimulatorConfig is the simulator.* surface of §6.4, §6.3.
type SimulatorConfig struct {
	BaseURL  string
	TimeoutS int
}

// PathsConfig is the paths.* surface of §6.4.
type PathsConfig struct {
	PatternsDir     string
	CiscoVocabulary string
	LabsDir         string
}

// Config is the exhaustive configuration surface of §6.4, assembled the way
// the teacher's cmd/app/main.go does it: flag.* for CLI entry points plus
// os.Getenv for secrets and endpoints, no config-file library.
type Config struct {
	LLM        LLMConfig
	Embeddings EmbeddingsConfig
	Retriever  RetrieverConfig
	Simulator  SimulatorConfig
	Paths      PathsConfig
	Limits     Limits
}

// DefaultConfig returns the documented §6.4 defaults, all of which can be
// overridden by flags or environment variables in LoadConfig.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Mode:      "hosted",
			ModelName: "gpt-4o-mini",
			TimeoutS:  30,
		},
		Embeddings: EmbeddingsConfig{
			ModelName: "text-embedding-3-large",
			Dim:       1024,
		},
		Retriever: RetrieverConfig{
			KTeaching:        3,
			KTroubleshooting: 12,
		},
		Simulator: SimulatorConfig{
			TimeoutS: 10,
		},
		Paths: PathsConfig{
			PatternsDir:     "patterns",
			CiscoVocabulary: "patterns/cisco_vocabulary.json",
			LabsDir:         "labs",
		},
		Limits: DefaultLimits(),
	}
}

// RegisterFlags registers one flag per §6.4 field against fs, pre-seeded
// from environment variables where the teacher's own binaries read secrets
// and endpoints from the environment (OLLAMA_HOST, OLLAMA_API_KEY, etc in
// src/models/ollama.go) rather than from flags.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	def := DefaultConfig()
	if c.LLM.Mode == "" {
		*c = def
	}

	fs.StringVar(&c.LLM.Mode, "llm-mode", envOr("TUTOR_LLM_MODE", c.LLM.Mode), "llm.mode: hosted|self_hosted")
	fs.StringVar(&c.LLM.EndpointURL, "llm-endpoint", envOr("TUTOR_LLM_ENDPOINT_URL", c.LLM.EndpointURL), "llm.endpoint_url")
	fs.StringVar(&c.LLM.APIKey, "llm-api-key", envOr("TUTOR_LLM_API_KEY", os.Getenv("OPENAI_API_KEY")), "llm.api_key")
	fs.StringVar(&c.LLM.ModelName, "llm-model", envOr("TUTOR_LLM_MODEL_NAME", c.LLM.ModelName), "llm.model_name")
	fs.IntVar(&c.LLM.TimeoutS, "llm-timeout-s", envIntOr("TUTOR_LLM_TIMEOUT_S", c.LLM.TimeoutS), "llm.timeout_s")

	fs.StringVar(&c.Embeddings.EndpointURL, "embeddings-endpoint", envOr("TUTOR_EMBEDDINGS_ENDPOINT_URL", c.Embeddings.EndpointURL), "embeddings.endpoint_url")
	fs.StringVar(&c.Embeddings.ModelName, "embeddings-model", envOr("TUTOR_EMBEDDINGS_MODEL_NAME", c.Embeddings.ModelName), "embeddings.model_name")
	fs.IntVar(&c.Embeddings.Dim, "embeddings-dim", envIntOr("TUTOR_EMBEDDINGS_DIM", c.Embeddings.Dim), "embeddings.dim")

	fs.StringVar(&c.Retriever.IndexPath, "retriever-index-path", envOr("TUTOR_RETRIEVER_INDEX_PATH", c.Retriever.IndexPath), "retriever.index_path")
	fs.StringVar(&c.Retriever.MetadataPath, "retriever-metadata-path", envOr("TUTOR_RETRIEVER_METADATA_PATH", c.Retriever.MetadataPath), "retriever.metadata_path")
	fs.IntVar(&c.Retriever.KTeaching, "retriever-k-teaching", envIntOr("TUTOR_RETRIEVER_K_TEACHING", c.Retriever.KTeaching), "retriever.k_teaching")
	fs.IntVar(&c.Retriever.KTroubleshooting, "retriever-k-troubleshooting", envIntOr("TUTOR_RETRIEVER_K_TROUBLESHOOTING", c.Retriever.KTroubleshooting), "retriever.k_troubleshooting")

	fs.StringVar(&c.Simulator.BaseURL, "simulator-base-url", envOr("TUTOR_SIMULATOR_BASE_URL", c.Simulator.BaseURL), "simulator.base_url")
	fs.IntVar(&c.Simulator.TimeoutS, "simulator-timeout-s", envIntOr("TUTOR_SIMULATOR_TIMEOUT_S", c.Simulator.TimeoutS), "simulator.timeout_s")

	fs.StringVar(&c.Paths.PatternsDir, "patterns-dir", envOr("TUTOR_PATTERNS_DIR", c.Paths.PatternsDir), "paths.patterns_dir")
	fs.StringVar(&c.Paths.CiscoVocabulary, "cisco-vocabulary", envOr("TUTOR_CISCO_VOCABULARY", c.Paths.CiscoVocabulary), "paths.cisco_vocabulary")
	fs.StringVar(&c.Paths.LabsDir, "labs-dir", envOr("TUTOR_LABS_DIR", c.Paths.LabsDir), "paths.labs_dir")

	fs.IntVar(&c.Limits.MaxToolIterations, "max-tool-iterations", envIntOr("TUTOR_MAX_TOOL_ITERATIONS", c.Limits.MaxToolIterations), "limits.max_tool_iterations")
	fs.IntVar(&c.Limits.ConversationHistoryMessages, "conversation-history-messages", envIntOr("TUTOR_CONVERSATION_HISTORY_MESSAGES", c.Limits.ConversationHistoryMessages), "limits.conversation_history_messages")
	fs.IntVar(&c.Limits.CLIHistoryEntries, "cli-history-entries", envIntOr("TUTOR_CLI_HISTORY_ENTRIES", c.Limits.CLIHistoryEntries), "limits.cli_history_entries")
}

// LoadConfig builds defaults, registers them against a fresh "tutor-core"
// flag set (not flag.CommandLine), and parses args (pass os.Args[1:] from a
// cmd/ main).
func LoadConfig(args []string) (*Config, error) {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("tutor-core", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c LLMConfig) Timeout() time.Duration       { return time.Duration(c.TimeoutS) * time.Second }
func (c SimulatorConfig) Timeout() time.Duration { return time.Duration(c.TimeoutS) * time.Second }

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
