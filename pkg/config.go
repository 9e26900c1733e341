package gpm

// Configuration holds the session settings of the acquisition program.
// The run parameters themselves (channels, record size...) live in the
// params file loaded into a ConfigStore.
type Configuration struct {
	Params      string `json:"params"`
	OutputDir   string `json:"output_dir"`
	Verbosity   int    `json:"verbosity"`
	PrintEvery  int    `json:"print_every"`
	Simulate    bool   `json:"simulate"`
	NoDB        bool   `json:"no_db"`
	Host        string `json:"host"`
	User        string `json:"user"`
	Passwd      string `json:"pass"`
	DBName      string `json:"dbname"`
	MetricsAddr string `json:"metrics_addr"`
}

func DefaultConfiguration() Configuration {
	return Configuration{
		Params:     "params.txt",
		OutputDir:  ".",
		Verbosity:  0,
		PrintEvery: 100,
		Simulate:   false,
		NoDB:       true,
		Host:       "next.ific.uv.es",
		User:       "gpmwriter",
		DBName:     "GPM",
	}
}

var configuration = DefaultConfiguration()

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}
