package config

type AppConfig struct {
	Server    ServerConfig
	Log       LogConfig
	Chain     ChainConfig
	Vault     VaultConfig
	Scheduler SchedulerConfig
	LLM       LLMConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	chainCfg, err := LoadChain()
	if err != nil {
		return AppConfig{}, err
	}
	vaultCfg, err := LoadVault()
	if err != nil {
		return AppConfig{}, err
	}
	schedCfg, err := LoadScheduler()
	if err != nil {
		return AppConfig{}, err
	}
	llmCfg, err := LoadLLM()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server:    serverCfg,
		Log:       logCfg,
		Chain:     chainCfg,
		Vault:     vaultCfg,
		Scheduler: schedCfg,
		LLM:       llmCfg,
	}, nil
}
